// Package config loads the optional retriever.toml application config. Every
// setting has a default, so running without a config file is the normal case.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application-level settings. Dataset cache placement is
// resolved separately from RETRIEVER_DIR and the XDG variables; DataDir here
// only overrides it when explicitly configured.
type Config struct {
	// DataDir overrides the environment-derived dataset cache directory.
	DataDir string `mapstructure:"DataDir"`
	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LogLevel"`
	// LogFilePath, when set, sends logs to a rotated file instead of stderr.
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error: the defaults apply, and environment
// variables prefixed RETRIEVER_ (RETRIEVER_LOGLEVEL and so on) still override.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("retriever")
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = defaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			missing := errors.Is(err, os.ErrNotExist)
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				missing = true
			}
			// an explicitly named file must exist; the default one need not
			if explicit || !missing {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DataDir", "")
	v.SetDefault("LogLevel", "warning")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 10)
	v.SetDefault("LogMaxBackups", 3)
	v.SetDefault("LogCompress", true)
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}

// defaultPath is $XDG_CONFIG_HOME/retriever/retriever.toml, falling back to
// ~/.config. Empty when no home directory can be determined.
func defaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "retriever", "retriever.toml")
}
