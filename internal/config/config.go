package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/jask/serialcore/internal/executor"
)

// ErrInvalid wraps every validation failure reported by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config holds application configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Database DatabaseConfig `toml:"database"`
	Hasher   ThreadConfig   `toml:"hasher"`
	Stepper  StepperConfig  `toml:"stepper"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ThreadConfig describes a dedicated executor thread.
type ThreadConfig struct {
	ThreadName string `toml:"thread_name" mapstructure:"thread_name"`
	Priority   string `toml:"priority"`
}

// StepperConfig describes the fixed-rate core stepping thread.
type StepperConfig struct {
	ThreadName string `toml:"thread_name" mapstructure:"thread_name"`
	Priority   string `toml:"priority"`
	FrameRate  int    `toml:"frame_rate" mapstructure:"frame_rate"`
}

// Default returns the configuration used when no file or env override is set.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Path: filepath.Join(os.Getenv("HOME"), ".local", "share", "serialcore", "serialcore.db")},
		Hasher:   ThreadConfig{ThreadName: "hasher", Priority: "utility"},
		Stepper:  StepperConfig{ThreadName: "core", Priority: "user-interactive", FrameRate: 60},
	}
}

// Path returns the config file location: SERIALCORE_CONFIG if set, otherwise
// ~/.config/serialcore/config.toml.
func Path() string {
	if p := os.Getenv("SERIALCORE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "serialcore", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix SERIALCORE_.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile is Load with an explicit config file path. A missing file is not
// an error.
func LoadFile(path string) (Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("hasher.thread_name", d.Hasher.ThreadName)
	v.SetDefault("hasher.priority", d.Hasher.Priority)
	v.SetDefault("stepper.thread_name", d.Stepper.ThreadName)
	v.SetDefault("stepper.priority", d.Stepper.Priority)
	v.SetDefault("stepper.frame_rate", d.Stepper.FrameRate)

	v.SetConfigType("toml")
	v.SetConfigFile(path)

	v.SetEnvPrefix("SERIALCORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks thread priorities and the frame rate.
func (c Config) Validate() error {
	if _, err := executor.ParsePriority(c.Hasher.Priority); err != nil {
		return fmt.Errorf("%w: hasher.priority: %w", ErrInvalid, err)
	}
	if _, err := executor.ParsePriority(c.Stepper.Priority); err != nil {
		return fmt.Errorf("%w: stepper.priority: %w", ErrInvalid, err)
	}
	if c.Stepper.FrameRate <= 0 || c.Stepper.FrameRate > 1000 {
		return fmt.Errorf("%w: stepper.frame_rate must be in 1..1000, got %d", ErrInvalid, c.Stepper.FrameRate)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalid)
	}
	return nil
}

// WriteDefault writes the default configuration as TOML to path, creating the
// directory if needed. An existing file is left untouched.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}
