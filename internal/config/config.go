// Package config loads the server configuration from defaults, an optional
// YAML file, a .env file and LOCAPP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. LOCAPP_SERVER_ADDR.
const EnvPrefix = "LOCAPP"

// Config is the resolved configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Calendar CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
}

// ServerConfig configures the HTTP server and storage location.
type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	DataDir   string `mapstructure:"data_dir" yaml:"data_dir"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// CalendarConfig configures feed fetching and background sync.
type CalendarConfig struct {
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	SyncInterval    time.Duration `mapstructure:"sync_interval" yaml:"sync_interval"`
	SyncConcurrency int           `mapstructure:"sync_concurrency" yaml:"sync_concurrency"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// SchedulerEnabled reports whether periodic sync should run.
func (c CalendarConfig) SchedulerEnabled() bool {
	return c.SyncInterval > 0
}

// SetDefaults registers every key with its default value. Keys must be
// registered for environment overrides to apply on Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8099")
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("calendar.fetch_timeout", 30*time.Second)
	v.SetDefault("calendar.sync_interval", 30*time.Minute)
	v.SetDefault("calendar.sync_concurrency", 1)
	v.SetDefault("calendar.user_agent", "LocApp Calendar Sync/1.0")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
		log.Printf("Loaded environment from %s", f)
	}
	return nil
}

// Load reads the optional config file into v and decodes the result.
// An empty cfgFile searches for locapp.yaml in the working directory.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("locapp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// YAML renders the configuration in the layout Load reads back.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Server.DataDir == "" {
		return errors.New("server.data_dir must not be empty")
	}
	if c.Calendar.FetchTimeout < 0 {
		return errors.New("calendar.fetch_timeout must not be negative")
	}
	if c.Calendar.SyncInterval < 0 {
		return errors.New("calendar.sync_interval must not be negative")
	}
	if c.Calendar.SyncInterval > 0 && c.Calendar.SyncInterval < time.Minute {
		return fmt.Errorf("calendar.sync_interval %s is below one minute", c.Calendar.SyncInterval)
	}
	if c.Calendar.SyncConcurrency < 1 {
		return errors.New("calendar.sync_concurrency must be at least 1")
	}
	return nil
}
