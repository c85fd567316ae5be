package interop

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how a Bridge exposes host values. It is usually decoded
// from a TOML file:
//
//	field_naming   = "uncap"
//	tag_name       = "js"
//	sweep_interval = "30s"
//	log_level      = "info"
type Config struct {
	// FieldNaming is "uncap" (Name -> name) or "as-is".
	FieldNaming string `toml:"field_naming"`
	// TagName is the struct tag consulted for member names and options.
	TagName string `toml:"tag_name"`
	// SweepInterval is a Go duration; empty or "0" disables the sweeper.
	SweepInterval string `toml:"sweep_interval"`
	LogLevel      string `toml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{FieldNaming: "uncap", TagName: "js", LogLevel: "info"}
}

// LoadConfig reads a TOML config file. Keys missing from the file keep
// their defaults; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ParseConfig decodes a TOML document.
func ParseConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, cfg.Validate()
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, len(undecoded))
	for i, k := range undecoded {
		keys[i] = k.String()
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := c.naming(); err != nil {
		return err
	}
	if c.TagName == "" {
		return fmt.Errorf("config: tag_name must not be empty")
	}
	if _, err := c.sweepInterval(); err != nil {
		return err
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c Config) naming() (FieldNaming, error) {
	switch c.FieldNaming {
	case "", "uncap":
		return NamingUncap, nil
	case "as-is":
		return NamingAsIs, nil
	}
	return 0, fmt.Errorf("config: field_naming %q is not one of uncap, as-is", c.FieldNaming)
}

func (c Config) sweepInterval() (time.Duration, error) {
	if c.SweepInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 0, fmt.Errorf("config: sweep_interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: sweep_interval %s is negative", d)
	}
	return d, nil
}

func (c Config) level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// NewLogger builds a production logger at the configured level, suitable
// for SetLogger.
func (c Config) NewLogger() (*zap.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
