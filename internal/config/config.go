package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandeepkv93/dusk/internal/scheduler"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix   = "DUSK"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	DataDir       string              `mapstructure:"data_dir" yaml:"data_dir"`
	KVPath        string              `mapstructure:"kv_path" yaml:"kv_path"`
	SQLitePath    string              `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Background    BackgroundConfig    `mapstructure:"background" yaml:"background"`
	Agent         AgentConfig         `mapstructure:"agent" yaml:"agent"`
	Foreground    ForegroundConfig    `mapstructure:"foreground" yaml:"foreground"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
}

type BackgroundConfig struct {
	Store    string        `mapstructure:"store" yaml:"store"`
	RedisURL string        `mapstructure:"redis_url" yaml:"redis_url"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Periodic string        `mapstructure:"periodic" yaml:"periodic"`
}

type AgentConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	OpenCommand string `mapstructure:"open_command" yaml:"open_command"`
}

type ForegroundConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	Match        string        `mapstructure:"match" yaml:"match"`
}

type NotificationsConfig struct {
	Desktop       bool          `mapstructure:"desktop" yaml:"desktop"`
	ToastDuration time.Duration `mapstructure:"toast_duration" yaml:"toast_duration"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

func Default() Config {
	return Config{
		DataDir: DefaultDataDir(),
		Background: BackgroundConfig{
			Store:    StoreSQLite,
			Interval: scheduler.DefaultBackgroundInterval,
			Periodic: scheduler.DefaultPeriodicSpec,
		},
		Agent: AgentConfig{
			Addr:        "127.0.0.1:7315",
			OpenCommand: "",
		},
		Foreground: ForegroundConfig{
			PollInterval: scheduler.DefaultForegroundInterval,
			Match:        string(scheduler.ExactMinute),
		},
		Notifications: NotificationsConfig{
			Desktop:       true,
			ToastDuration: 8 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dusk"
	}
	return filepath.Join(home, ".local", "share", "dusk")
}

func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "dusk", "config.yaml")
}

// Load merges defaults, an optional .env file, the yaml file at path (if it
// exists) and DUSK_* environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg = cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("kv_path", d.KVPath)
	v.SetDefault("sqlite_path", d.SQLitePath)
	v.SetDefault("background.store", d.Background.Store)
	v.SetDefault("background.redis_url", d.Background.RedisURL)
	v.SetDefault("background.interval", d.Background.Interval)
	v.SetDefault("background.periodic", d.Background.Periodic)
	v.SetDefault("agent.addr", d.Agent.Addr)
	v.SetDefault("agent.open_command", d.Agent.OpenCommand)
	v.SetDefault("foreground.poll_interval", d.Foreground.PollInterval)
	v.SetDefault("foreground.match", d.Foreground.Match)
	v.SetDefault("notifications.desktop", d.Notifications.Desktop)
	v.SetDefault("notifications.toast_duration", d.Notifications.ToastDuration)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// resolve fills the paths that default to files under DataDir.
func (c Config) resolve() Config {
	c.DataDir = expandHome(strings.TrimSpace(c.DataDir))
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.KVPath == "" {
		c.KVPath = filepath.Join(c.DataDir, "dusk.json")
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "agent.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.DataDir, "dusk.log")
	}
	c.KVPath = expandHome(c.KVPath)
	c.SQLitePath = expandHome(c.SQLitePath)
	c.Log.File = expandHome(c.Log.File)
	c.Background.Store = strings.ToLower(strings.TrimSpace(c.Background.Store))
	return c
}

func (c Config) Validate() error {
	switch c.Background.Store {
	case StoreSQLite:
	case StoreRedis:
		if strings.TrimSpace(c.Background.RedisURL) == "" {
			return errors.New("config: background.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown background.store %q", c.Background.Store)
	}
	if c.Background.Interval <= 0 {
		return fmt.Errorf("config: background.interval must be positive, got %s", c.Background.Interval)
	}
	if c.Foreground.PollInterval <= 0 || c.Foreground.PollInterval > scheduler.MaxForegroundInterval {
		return fmt.Errorf("config: foreground.poll_interval must be in (0, %s], got %s", scheduler.MaxForegroundInterval, c.Foreground.PollInterval)
	}
	if _, err := scheduler.ParseComparison(c.Foreground.Match); err != nil {
		return fmt.Errorf("config: foreground.match: %w", err)
	}
	if strings.TrimSpace(c.Agent.Addr) == "" {
		return errors.New("config: agent.addr is required")
	}
	return nil
}

func (c Config) Comparison() scheduler.Comparison {
	cmp, err := scheduler.ParseComparison(c.Foreground.Match)
	if err != nil {
		return scheduler.ExactMinute
	}
	return cmp
}

// AgentURL is the base URL the foreground uses to reach the agent.
func (c Config) AgentURL() string {
	addr := strings.TrimSpace(c.Agent.Addr)
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

// WriteDefault writes cfg as yaml to path. An existing file is kept unless
// force is set.
func WriteDefault(path string, cfg Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config: %s already exists", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir: %w", err)
		}
	}
	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, payload, 0o644)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
