package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/enginelink/internal/transport"
	"github.com/agentstation/enginelink/pkg/constants"
	"github.com/agentstation/enginelink/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Backend connection
	BaseURI     string
	Backend     string
	Headers     map[string]string
	HeadersFile string
	LoginDomain string
	Timeout     time.Duration

	// Local resources
	ModelsDir    string
	DefaultsFile string
	Watch        bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (ENGINELINK_*)
// 3. .env files
// 4. Config file (~/.enginelink.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), "")
}

// LoadConfigFile loads configuration reading an explicit config file.
func LoadConfigFile(path string) (*Config, error) {
	return loadConfig(viper.New(), path)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetDefault("backend", "comfyui")
	v.SetDefault("login_domain", constants.DefaultLoginDomain)
	v.SetDefault("timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "could not read "+configFile, err)
		}
	} else {
		// Search for config in standard locations
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("." + constants.AppName)

		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no_color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		BaseURI:     v.GetString("base_uri"),
		Backend:     v.GetString("backend"),
		Headers:     v.GetStringMapString("headers"),
		HeadersFile: v.GetString("headers_file"),
		LoginDomain: v.GetString("login_domain"),
		Timeout:     v.GetDuration("timeout"),

		ModelsDir:    v.GetString("models_dir"),
		DefaultsFile: v.GetString("defaults_file"),
		Watch:        v.GetBool("watch"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	if config.Timeout <= 0 {
		return nil, errors.NewConfigError("timeout", "must be positive", nil)
	}
	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// ResolveHeaders merges the headers file under the configured header map.
// Keys set in the header map win over the same key in the file.
func (c *Config) ResolveHeaders() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	if c.HeadersFile != "" {
		data, err := os.ReadFile(c.HeadersFile)
		if err != nil {
			return nil, errors.NewConfigError("headers", "could not read header file", errors.WrapIO("read", c.HeadersFile, err))
		}
		parsed, err := transport.ParseHeaderText(string(data))
		if err != nil {
			return nil, errors.NewConfigError("headers", "could not parse header file", err)
		}
		for k, v := range parsed {
			headers[k] = v
		}
	}
	// viper lowercases map keys; header names are case-insensitive on the wire
	for k, v := range c.Headers {
		headers[k] = v
	}
	return headers, nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
