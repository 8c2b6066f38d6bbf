package config

import "time"

// Config is the effective giter configuration.
type Config struct {
	Cache CacheConfig `mapstructure:"cache" json:"cache" yaml:"cache"`
	Log   LogConfig   `mapstructure:"log" json:"log" yaml:"log"`
	Watch WatchConfig `mapstructure:"watch" json:"watch" yaml:"watch"`
	Diff  DiffConfig  `mapstructure:"diff" json:"diff" yaml:"diff"`
	Walk  WalkConfig  `mapstructure:"walk" json:"walk" yaml:"walk"`
}

// CacheConfig locates the author cache database.
type CacheConfig struct {
	Path string `mapstructure:"path" json:"path" yaml:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level" yaml:"level"`
}

// WatchConfig controls how file system events are coalesced before the
// status of a repository is recomputed.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
}

type DiffConfig struct {
	Theme string `mapstructure:"theme" json:"theme" yaml:"theme"`
}

// WalkConfig bounds commit listings when no explicit count is given.
type WalkConfig struct {
	DefaultCount int `mapstructure:"default_count" json:"default_count" yaml:"default_count"`
}
