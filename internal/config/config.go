package config

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppConfig seeds one tracked app at startup.
type AppConfig struct {
	Name             string `mapstructure:"name"`
	DailyGoalMinutes int    `mapstructure:"daily_goal_minutes"`
	Icon             string `mapstructure:"icon"`
	Color            string `mapstructure:"color"`
}

type Config struct {
	DatabasePath        string      `mapstructure:"database_path"`
	SocketPath          string      `mapstructure:"socket_path"`
	TickIntervalSeconds int         `mapstructure:"tick_interval_seconds"`
	MaxRunSeconds       int         `mapstructure:"max_run_seconds"`
	DayResetSchedule    string      `mapstructure:"day_reset_schedule"` // cron spec with seconds field
	Apps                []AppConfig `mapstructure:"apps"`
}

var defaultApps = []map[string]interface{}{
	{"name": "Instagram", "daily_goal_minutes": 30, "icon": "logo-instagram", "color": "#E1306C"},
	{"name": "TikTok", "daily_goal_minutes": 45, "icon": "musical-notes", "color": "#000000"},
	{"name": "YouTube", "daily_goal_minutes": 60, "icon": "logo-youtube", "color": "#FF0000"},
}

func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/screentime")
		viper.AddConfigPath("/etc/screentime/")
	}

	viper.SetEnvPrefix("SCREENTIME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("database_path", "screentime.db")
	viper.SetDefault("socket_path", "/tmp/screentime.sock")
	viper.SetDefault("tick_interval_seconds", 1)
	viper.SetDefault("max_run_seconds", 60)
	viper.SetDefault("day_reset_schedule", "0 0 0 * * *")
	viper.SetDefault("apps", defaultApps)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults are fine
			log.Println("Config file not found, using defaults.")
		} else {
			return nil, err
		}
	}

	cfg, err := decode()
	if err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded: %+v", *cfg)
	return cfg, nil
}

// WatchConfig re-reads the config file on change and hands the result to
// onChange. Invalid updates are logged and skipped.
func WatchConfig(onChange func(*Config)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		log.Printf("Config file changed: %s", e.Name)
		cfg, err := decode()
		if err != nil {
			log.Printf("Warning: ignoring invalid config update: %v", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

func decode() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.sanitize()
	return &cfg, nil
}

func (c *Config) sanitize() {
	if c.TickIntervalSeconds < 1 {
		log.Println("Warning: tick_interval_seconds too low, setting to 1")
		c.TickIntervalSeconds = 1
	}
	if c.MaxRunSeconds < 1 {
		log.Println("Warning: max_run_seconds too low, setting to 60")
		c.MaxRunSeconds = 60
	}
	if strings.TrimSpace(c.DayResetSchedule) == "" {
		c.DayResetSchedule = "0 0 0 * * *"
	}
}

// ResolvePaths makes relative database and socket paths absolute against
// baseDir, so they do not depend on the working directory of a detached
// daemon.
func (c *Config) ResolvePaths(baseDir string) {
	c.DatabasePath = resolvePath(baseDir, c.DatabasePath)
	c.SocketPath = resolvePath(baseDir, c.SocketPath)
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

func (c *Config) MaxRunDuration() time.Duration {
	return time.Duration(c.MaxRunSeconds) * time.Second
}
