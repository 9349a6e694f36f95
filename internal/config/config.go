package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// Live stream tuning.
	StreamBufferSize  int           `mapstructure:"stream_buffer_size" yaml:"stream_buffer_size"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ReapInterval      time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`

	// Backfill.
	BackfillMaxLimit int `mapstructure:"backfill_max_limit" yaml:"backfill_max_limit"`

	// Retention sweep.
	RetentionSweepInterval time.Duration `mapstructure:"retention_sweep_interval" yaml:"retention_sweep_interval"`
	RetentionWindow        time.Duration `mapstructure:"retention_window" yaml:"retention_window"`
	PurgeThreshold         time.Duration `mapstructure:"purge_threshold" yaml:"purge_threshold"`

	// Per-client request rate limit (requests per minute, 0 disables).
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",

		DatabasePath: "driftchat.db",

		JWTIssuer:   "driftchat",
		JWTAudience: "driftchat-clients",
		JWTTTL:      24 * time.Hour,

		StreamBufferSize:  32,
		HeartbeatInterval: 25 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ReapInterval:      30 * time.Second,

		BackfillMaxLimit: 200,

		RetentionSweepInterval: 24 * time.Hour,
		RetentionWindow:        90 * 24 * time.Hour,
		PurgeThreshold:         7 * 24 * time.Hour,

		RateLimitPerMinute: 120,
	}
}
