package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/explode/pkg/errors"
	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/playback"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// configFile is the name looked up under $XDG_CONFIG_HOME/explode.
const configFile = "explode.toml"

// Cache backends.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

// Config is the contents of explode.toml. Every field is optional; flags
// override file values.
type Config struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
	Playback  PlaybackConfig  `toml:"playback"`
	Server    ServerConfig    `toml:"server"`
	Cache     CacheConfig     `toml:"cache"`
	Events    EventsConfig    `toml:"events"`
}

// SchedulerConfig mirrors scheduler.Config.
type SchedulerConfig struct {
	Speed      float64 `toml:"speed"`
	Mode       string  `toml:"mode"`
	TickBudget int     `toml:"tick_budget"`
	MaxQueue   int     `toml:"max_queue"`
}

// PlaybackConfig mirrors playback.Options.
type PlaybackConfig struct {
	FrameRate   float64 `toml:"frame_rate"`
	MaxTicks    int     `toml:"max_ticks"`
	SampleEvery int     `toml:"sample_every"`
}

// ServerConfig configures "explode serve".
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// CacheConfig selects the trace cache backend.
type CacheConfig struct {
	Backend       string   `toml:"backend"` // file (default), redis or none
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	TTL           duration `toml:"ttl"`
}

// EventsConfig enables the MongoDB event archive for "explode serve".
type EventsConfig struct {
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`

	// HistoryLimit caps in-memory history when no archive is configured.
	HistoryLimit int `toml:"history_limit"`
}

func (e EventsConfig) historyLimit() int {
	if e.HistoryLimit > 0 {
		return e.HistoryLimit
	}
	return events.DefaultHistoryLimit
}

// duration decodes TOML strings like "12h".
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// loadConfig reads path. An empty path falls back to the default location,
// which may be missing; an explicit path must exist.
func loadConfig(path string) (Config, string, error) {
	var cfg Config
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, "", nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, "", nil
		}
		return cfg, "", errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, "", errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, "", errors.New(errors.ErrCodeInvalidConfig, "config %s: unknown key %s", path, undecoded[0])
	}
	return cfg, path, cfg.validate()
}

func (c Config) validate() error {
	if c.Scheduler.Mode != "" {
		if _, err := scheduler.ParseMode(c.Scheduler.Mode); err != nil {
			return err
		}
	}
	switch c.Cache.Backend {
	case "", backendFile, backendRedis, backendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}
	if c.Cache.Backend == backendRedis && c.Cache.RedisAddr == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache backend redis needs redis_addr")
	}
	if c.Events.MongoURI != "" {
		return errors.ValidateMongoURI(c.Events.MongoURI)
	}
	return nil
}

// defaultConfigPath returns $XDG_CONFIG_HOME/explode/explode.toml, falling
// back to ~/.config.
func defaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, configFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, configFile)
}

// schedulerConfig converts the file section. The mode was checked by
// validate.
func (c Config) schedulerConfig(logger *log.Logger) scheduler.Config {
	mode, _ := scheduler.ParseMode(c.Scheduler.Mode)
	return scheduler.Config{
		Speed:      c.Scheduler.Speed,
		Mode:       mode,
		TickBudget: c.Scheduler.TickBudget,
		MaxQueue:   c.Scheduler.MaxQueue,
		Logger:     logger,
	}
}

func (c Config) playbackOptions(logger *log.Logger) playback.Options {
	return playback.Options{
		FrameRate:   c.Playback.FrameRate,
		MaxTicks:    c.Playback.MaxTicks,
		SampleEvery: c.Playback.SampleEvery,
		TTL:         c.Cache.TTL.Duration,
		Logger:      logger,
	}
}
