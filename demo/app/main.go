// Demo of embedding the validation engine directly, without the HTTP
// facade: one validator instance, a few sample messages, and the event
// summary a backend could expose afterwards.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/chatguard/chatguard/internal/eventlog"
	"github.com/chatguard/chatguard/internal/validator"
)

func main() {
	events := eventlog.NewLog(0)

	engine, err := validator.New(validator.Config{
		Events: events,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err != nil {
		log.Fatal(err)
	}

	samples := []struct {
		identity string
		text     string
	}{
		{"alice", "Hey, is my order still on track for Friday?"},
		{"alice", "<script>document.location='https://evil.example'</script>"},
		{"bob", "' OR 1=1"},
		{"bob", "thanks, that fixed it!"},
	}

	for _, s := range samples {
		out, err := engine.Validate(s.text, s.identity)
		if err != nil {
			fmt.Printf("reject %-8s %v\n", s.identity, err)
			continue
		}
		fmt.Printf("accept %-8s %q\n", s.identity, out)
	}

	summary := events.Summarize(0)
	fmt.Printf("\nrecorded events: %d\n", summary.Total)
	for category, count := range summary.ByCategory {
		fmt.Printf("  %-16s %d\n", category, count)
	}

	status := engine.RateStatus("alice")
	fmt.Printf("alice attempts left this window: %d\n", status.Remaining)
}
