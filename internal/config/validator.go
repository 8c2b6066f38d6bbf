package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Cache.Path) == "" {
		errs = append(errs, errors.New("cache.path must not be empty"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce))
	}
	switch strings.ToLower(strings.TrimSpace(c.Diff.Theme)) {
	case "auto", "light", "dark":
	default:
		errs = append(errs, fmt.Errorf("diff.theme must be auto, light or dark, got %q", c.Diff.Theme))
	}
	if c.Walk.DefaultCount <= 0 {
		errs = append(errs, fmt.Errorf("walk.default_count must be positive, got %d", c.Walk.DefaultCount))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses Level the way slog names levels (debug, info, warn,
// error, optionally with an offset such as "debug+2").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
