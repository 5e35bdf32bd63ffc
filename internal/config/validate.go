package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chatguard/chatguard/internal/policy"
)

type ValidationError struct {
	Problems []string
}

func (v *ValidationError) Add(format string, args ...any) {
	v.Problems = append(v.Problems, fmt.Sprintf(format, args...))
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%d validation error(s)", len(v.Problems))
}

func (c *Config) Validate() error {
	v := &ValidationError{}

	if c.ConfigVersion != 1 {
		v.Add("configVersion must be 1")
	}

	if err := validateListen(c.Server.Listen); err != nil {
		v.Add("server.listen invalid: %v", err)
	}
	if c.Server.RequestsPerSecond < 0 {
		v.Add("server.requestsPerSecond must be >= 0")
	}
	if c.Server.RequestsPerSecond > 0 && c.Server.Burst <= 0 {
		v.Add("server.burst must be > 0 when requestsPerSecond is set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		v.Add("server.maxBodyBytes must be > 0")
	}

	if c.Metrics.Enabled {
		if err := validateListen(c.Metrics.Listen); err != nil {
			v.Add("metrics.listen invalid: %v", err)
		}
	}

	if _, err := policy.ParseMode(c.Mode); err != nil {
		v.Add("mode invalid: %v", err)
	}

	if c.Limits.MaxLength <= 0 {
		v.Add("limits.maxLength must be > 0")
	}
	if c.Limits.MaxLines <= 0 {
		v.Add("limits.maxLines must be > 0")
	}
	if c.Limits.MaxWords <= 0 {
		v.Add("limits.maxWords must be > 0")
	}

	if c.RateLimit.WindowMS <= 0 {
		v.Add("rateLimit.windowMs must be > 0")
	}
	if c.RateLimit.MaxCount <= 0 {
		v.Add("rateLimit.maxCount must be > 0")
	}

	if c.EventLog.Capacity <= 0 {
		v.Add("eventLog.capacity must be > 0")
	}

	if c.Strikes.WindowMS <= 0 {
		v.Add("strikes.windowMs must be > 0")
	}
	if c.Strikes.MaxIdentities <= 0 {
		v.Add("strikes.maxIdentities must be > 0")
	}

	if c.Remote.Endpoint != "" {
		if err := validateURL(c.Remote.Endpoint); err != nil {
			v.Add("remote.endpoint invalid: %v", err)
		}
	}
	if c.Remote.TimeoutMS < 0 {
		v.Add("remote.timeoutMs must be >= 0")
	}

	if c.Reporting.WebhookURL != "" {
		if err := validateURL(c.Reporting.WebhookURL); err != nil {
			v.Add("reporting.webhookUrl invalid: %v", err)
		}
	}
	for i, u := range c.Reporting.NotifyURLs {
		if strings.TrimSpace(u) == "" {
			v.Add("reporting.notifyUrls[%d] is empty", i)
		}
	}
	if c.Reporting.PerMinute < 0 {
		v.Add("reporting.perMinute must be >= 0")
	}

	if c.Audit.Path != "" {
		if err := ensureWritable(c.resolvePath(c.Audit.Path)); err != nil {
			v.Add("audit.path invalid: %v", err)
		}
	}
	if c.Audit.MaxSizeMB < 0 {
		v.Add("audit.maxSizeMb must be >= 0")
	}
	if c.Audit.MaxBackups < 0 {
		v.Add("audit.maxBackups must be >= 0")
	}
	if c.Audit.MaxAgeDays < 0 {
		v.Add("audit.maxAgeDays must be >= 0")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		v.Add("logging.level must be debug|info|warn|error")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		v.Add("logging.format must be text|json")
	}

	if len(v.Problems) > 0 {
		sort.Strings(v.Problems)
		return v
	}
	return nil
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("address is required")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("must include scheme and host")
	}
	return nil
}

func ensureWritable(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	file, err := os.CreateTemp(dir, "chatguard-validate-*")
	if err != nil {
		return err
	}
	name := file.Name()
	if err := file.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
