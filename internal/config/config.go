package config

import "time"

type Config struct {
	ConfigVersion int             `yaml:"configVersion"`
	Server        ServerConfig    `yaml:"server"`
	Metrics       MetricsConfig   `yaml:"metrics"`
	Mode          string          `yaml:"mode"`
	Limits        LimitsConfig    `yaml:"limits"`
	RateLimit     RateLimitConfig `yaml:"rateLimit"`
	EventLog      EventLogConfig  `yaml:"eventLog"`
	Strikes       StrikesConfig   `yaml:"strikes"`
	Remote        RemoteConfig    `yaml:"remote"`
	Reporting     ReportingConfig `yaml:"reporting"`
	Audit         AuditConfig     `yaml:"audit"`
	Logging       LoggingConfig   `yaml:"logging"`

	baseDir string `yaml:"-"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`

	// Per-client transport throttle, distinct from the per-identity
	// message limiter. Zero disables it.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`

	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type LimitsConfig struct {
	MaxLength int `yaml:"maxLength"`
	MaxLines  int `yaml:"maxLines"`
	MaxWords  int `yaml:"maxWords"`
}

type RateLimitConfig struct {
	WindowMS int `yaml:"windowMs"`
	MaxCount int `yaml:"maxCount"`
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

type EventLogConfig struct {
	Capacity int `yaml:"capacity"`
}

type StrikesConfig struct {
	WindowMS      int `yaml:"windowMs"`
	MaxIdentities int `yaml:"maxIdentities"`
}

func (c StrikesConfig) Window() time.Duration {
	return time.Duration(c.WindowMS) * time.Millisecond
}

type RemoteConfig struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMS int    `yaml:"timeoutMs"`
}

func (c RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

type ReportingConfig struct {
	WebhookURL string   `yaml:"webhookUrl"`
	NotifyURLs []string `yaml:"notifyUrls"`
	PerMinute  int      `yaml:"perMinute"`
}

type AuditConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		ConfigVersion: 1,
		Server: ServerConfig{
			Listen:       ":8080",
			Burst:        20,
			MaxBodyBytes: 64 * 1024,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
		},
		Mode: "enforce",
		Limits: LimitsConfig{
			MaxLength: 2000,
			MaxLines:  50,
			MaxWords:  300,
		},
		RateLimit: RateLimitConfig{
			WindowMS: 60_000,
			MaxCount: 10,
		},
		EventLog: EventLogConfig{
			Capacity: 100,
		},
		Strikes: StrikesConfig{
			WindowMS:      3_600_000,
			MaxIdentities: 50_000,
		},
		Remote: RemoteConfig{
			TimeoutMS: 5_000,
		},
		Reporting: ReportingConfig{
			PerMinute: 6,
		},
		Audit: AuditConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) BaseDir() string {
	return c.baseDir
}

func (c *Config) ResolvePath(path string) string {
	return c.resolvePath(path)
}
