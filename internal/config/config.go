package config

// Config holds all application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Editor  EditorConfig  `mapstructure:"editor"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// StoreConfig selects where the orchestrator settings live.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is used by the file and sqlite backends.
	Path string `mapstructure:"path"`
	// URL and Token are used by the http backend.
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Timeout string `mapstructure:"timeout"`
	// CreateDefaults serves the built-in defaults until something is saved.
	CreateDefaults bool `mapstructure:"create_defaults"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	AuthToken   string   `mapstructure:"auth_token"`
	RedactKeys  bool     `mapstructure:"redact_keys"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	Metrics     bool     `mapstructure:"metrics"`
	Watch       bool     `mapstructure:"watch"`
}

// CatalogConfig points at an optional provider/model catalog file.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// EditorConfig tunes the settings reconciler.
type EditorConfig struct {
	StatusTTL  string `mapstructure:"status_ttl"`
	Optimistic bool   `mapstructure:"optimistic"`
}
