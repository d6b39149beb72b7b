// Package cli implements the explode command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/explode/pkg/buildinfo"
	"github.com/matzehuels/explode/pkg/cache"
	"github.com/matzehuels/explode/pkg/loader"
	"github.com/matzehuels/explode/pkg/playback"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "explode"
)

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

	// Config is loaded from explode.toml before any command runs.
	Config     Config
	configPath string
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
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "explode animates exploded views of assemblies",
		Long:         `explode schedules exploded-view animations: parts slide out along their own axes in an order that respects which parts block, carry or follow each other, and slide back on implosion.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/explode/explode.toml)")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, path, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	registerLogHooks(c.Logger)
	return nil
}

// =============================================================================
// Shared Helpers
// =============================================================================

// loadAssembly reads an assembly file and logs every unresolved relation.
func (c *CLI) loadAssembly(path string) (*loader.Result, error) {
	prog := newProgress(c.Logger)
	res, err := loader.Load(path, loader.Options{Logger: c.Logger})
	if err != nil {
		return nil, err
	}
	prog.done("Loaded " + filepath.Base(path))
	return res, nil
}

// newRunner creates a playback runner backed by the configured trace cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*playback.Runner, error) {
	tc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return playback.NewRunner(tc, nil, c.Logger), nil
}

// newCache opens the configured backend. A file cache that cannot find a
// home directory silently degrades to no caching.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cc := c.Config.Cache
	if noCache || cc.Backend == backendNone {
		return cache.NewNullCache(), nil
	}
	if cc.Backend == backendRedis {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		})
	}
	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/explode/).
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

