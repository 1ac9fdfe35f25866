// Package cli implements the conf2dot command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/conf2dot/pkg/buildinfo"
	"github.com/matzehuels/conf2dot/pkg/cache"
	"github.com/matzehuels/conf2dot/pkg/observability"
	"github.com/matzehuels/conf2dot/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "conf2dot"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The root command itself converts a configuration file.
func (c *CLI) RootCommand() *cobra.Command {
	root := c.convertCommand()
	root.Version = buildinfo.Version
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/conf2dot/config.toml)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(c.configPath, c.Logger)
		if err != nil {
			return err
		}
		c.cfg = cfg
		observability.SetPipelineHooks(logHooks{c.Logger})
		observability.SetCacheHooks(logHooks{c.Logger})
		observability.SetServerHooks(logHooks{c.Logger})
		return nil
	}

	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *pipeline.Runner {
	return pipeline.NewRunner(c.newCache(ctx, noCache), c.Logger)
}

// newCache picks Redis when a URL is configured, then the file cache.
// Cache failures degrade to no caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	if c.cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, c.cfg.RedisURL)
		if err == nil {
			c.Logger.Debug("using redis cache")
			return rc
		}
		c.Logger.Warn("redis cache unavailable, falling back to file cache", "error", err)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable", "dir", dir, "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/conf2dot/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// defaultConfigPath returns the default config file (~/.config/conf2dot/config.toml).
func defaultConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
