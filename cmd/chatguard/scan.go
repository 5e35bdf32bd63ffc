package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatguard/chatguard/internal/structural"
	"github.com/chatguard/chatguard/internal/threat"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [text]",
		Short: "Scan a message and print its verdict",
		Long: "Scan runs the structural limits and the full threat catalog against\n" +
			"a single message, given as arguments or on stdin, and exits non-zero\n" +
			"when the message would be rejected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := scanInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return scan(cmd.OutOrStdout(), text)
		},
	}

	return cmd
}

func scanInput(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func scan(out io.Writer, text string) error {
	trimmed := strings.TrimSpace(text)

	if err := structural.DefaultLimits().Check(trimmed); err != nil {
		return err
	}

	findings := threat.DefaultCatalog().Scan(trimmed)
	for _, f := range findings {
		fmt.Fprintf(out, "%-18s %s\n", f.Category, f.Evidence)
	}
	if len(findings) > 0 {
		return fmt.Errorf("rejected: %d finding(s)", len(findings))
	}

	fmt.Fprintln(out, "ok")
	return nil
}
