package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete atomation configuration
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Output   OutputConfig   `mapstructure:"output"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	History  HistoryConfig  `mapstructure:"history"`
	Claude   ClaudeConfig   `mapstructure:"claude"`
}

// AnalysisConfig controls the scheduling analyzer
type AnalysisConfig struct {
	// Relations selects how dependency types propagate dates
	// Options: "typed", "as-fs", "fs-only"
	Relations string `mapstructure:"relations"`
	// Deadlines lets a task's deadline, rather than its due date, bound how
	// late it may finish
	Deadlines bool `mapstructure:"deadlines"`
}

// OutputConfig controls terminal rendering
type OutputConfig struct {
	Color bool `mapstructure:"color"`
	// DateFormat is a Go time layout used for every printed date
	DateFormat string `mapstructure:"date_format"`
}

// ChartConfig controls the ASCII Gantt chart
type ChartConfig struct {
	// Width is the number of bar columns (min: 10, max: 400)
	Width int `mapstructure:"width"`
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	// Level options: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Format options: "text", "json"
	Format string `mapstructure:"format"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// HistoryConfig controls the analysis history store
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Driver options: "sqlite", "postgres", "mysql"
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ClaudeConfig controls the narrative report client
type ClaudeConfig struct {
	// Model overrides the SDK default when set
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Relations: "typed",
		},
		Output: OutputConfig{
			Color:      true,
			DateFormat: "2006-01-02",
		},
		Chart: ChartConfig{
			Width: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         7171,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		History: HistoryConfig{
			Enabled: false,
			Driver:  "sqlite",
			DSN:     filepath.Join(".atomation", "history.db"),
		},
		Claude: ClaudeConfig{
			Model:     "",
			MaxTokens: 2048,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("analysis.relations", defaults.Analysis.Relations)
	viper.SetDefault("analysis.deadlines", defaults.Analysis.Deadlines)

	viper.SetDefault("output.color", defaults.Output.Color)
	viper.SetDefault("output.date_format", defaults.Output.DateFormat)

	viper.SetDefault("chart.width", defaults.Chart.Width)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)

	viper.SetDefault("server.host", defaults.Server.Host)
	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	viper.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)

	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.driver", defaults.History.Driver)
	viper.SetDefault("history.dsn", defaults.History.DSN)

	viper.SetDefault("claude.model", defaults.Claude.Model)
	viper.SetDefault("claude.max_tokens", defaults.Claude.MaxTokens)
}

// Init wires viper to its sources: defaults, then the config file, then
// ATOMATION_* environment variables. An explicit cfgFile that cannot be read
// is an error; a missing default file is not.
func Init(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("atomation")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(ConfigDir())
	}

	viper.SetEnvPrefix("ATOMATION")
	// e.g. ATOMATION_SERVER_PORT for server.port
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return err
	}
	return nil
}

// Load unmarshals the viper state into a validated Config
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the atomation configuration directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "atomation")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "atomation")
	}
	return filepath.Join(home, ".config", "atomation")
}

// ConfigFile returns the default config file path
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "atomation.yaml")
}
