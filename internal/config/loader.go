package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName        = "giter"
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "GITER"

	defaultDebounce     = 350 * time.Millisecond
	defaultWalkCount    = 200
	defaultLogLevel     = "info"
	defaultTheme        = "auto"
	defaultDatabaseName = "cache.db"
)

// Load reads the configuration from, in order of precedence, GITER_*
// environment variables, the YAML file at path (or the default location
// when path is empty) and built-in defaults. A missing default file is not
// an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(expandHomeDir(path))
	v.SetConfigType(configFileType)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		slog.Debug("no config file, using defaults", slog.String("path", path))
	} else {
		slog.Debug("config file loaded", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Cache.Path = expandHomeDir(cfg.Cache.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/giter/config.yaml or its platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join("~", ".config")
	}
	return filepath.Join(dir, appName, configFileName+"."+configFileType)
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = filepath.Join("~", ".cache")
	}
	return filepath.Join(dir, appName, defaultDatabaseName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("watch.debounce", defaultDebounce)
	v.SetDefault("diff.theme", defaultTheme)
	v.SetDefault("walk.default_count", defaultWalkCount)
}

// expandHomeDir expands a leading ~ to the user's home directory.
func expandHomeDir(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
