package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

// Environment variables that override the config file.
const (
	envRedisURL = "CONF2DOT_REDIS_URL"
	envDotTool  = "CONF2DOT_DOT_TOOL"
)

// Config holds defaults read from config.toml:
//
//	format      = "svg"
//	omit_levels = false
//	engine      = "exec"
//	timeout     = "30s"
//	tool        = "/opt/graphviz/bin/dot"
//	no_cache    = false
//	redis_url   = "redis://localhost:6379/0"
//
//	[options]
//	inputfile = "speech.wav"
type Config struct {
	Format     string            `toml:"format"`
	OmitLevels bool              `toml:"omit_levels"`
	Engine     string            `toml:"engine"`
	Timeout    time.Duration     `toml:"timeout"`
	Tool       string            `toml:"tool"`
	NoCache    bool              `toml:"no_cache"`
	RedisURL   string            `toml:"redis_url"`
	Options    map[string]string `toml:"options"`
}

// loadConfig reads the config file at path, or the default location when
// path is empty, then applies environment overrides. A missing default
// file is not an error; a missing explicit file is.
func loadConfig(path string, logger *log.Logger) (Config, error) {
	var cfg Config

	explicit := path != ""
	if !explicit {
		p, err := defaultConfigPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case err == nil:
			for _, key := range md.Undecoded() {
				logger.Warn("unknown config key", "file", path, "key", key.String())
			}
			logger.Debug("loaded config", "file", path)
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv(envRedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(envDotTool); v != "" {
		cfg.Tool = v
	}
}

// overrides merges the config's [options] table with flag values; flags win.
func (cfg Config) overrides(flags map[string]string) map[string]string {
	out := maps.Clone(cfg.Options)
	if out == nil {
		out = make(map[string]string, len(flags))
	}
	maps.Copy(out, flags)
	return out
}

// stringFlag returns the flag value when it was set explicitly, else the
// non-empty config value, else the flag default.
func stringFlag(flags *pflag.FlagSet, name, flagValue, cfgValue string) string {
	if flags.Changed(name) || strings.TrimSpace(cfgValue) == "" {
		return flagValue
	}
	return cfgValue
}

func boolFlag(flags *pflag.FlagSet, name string, flagValue, cfgValue bool) bool {
	if flags.Changed(name) {
		return flagValue
	}
	return flagValue || cfgValue
}

func durationFlag(flags *pflag.FlagSet, name string, flagValue, cfgValue time.Duration) time.Duration {
	if flags.Changed(name) || cfgValue <= 0 {
		return flagValue
	}
	return cfgValue
}
