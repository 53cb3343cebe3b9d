package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type WorkspaceConfig struct {
	Dir     string `mapstructure:"dir"`
	Isolate bool   `mapstructure:"isolate"`
}

type ProcessConfig struct {
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
	ReadChunk    int           `mapstructure:"read_chunk"`
}

type LanguagesConfig struct {
	File string `mapstructure:"file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Process   ProcessConfig   `mapstructure:"process"`
	Languages LanguagesConfig `mapstructure:"languages"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads opencompiler.yaml from path, or from the working directory and
// $HOME/.opencompiler when path is empty. A missing file is not an error.
// OPENCOMPILER_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("opencompiler")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.opencompiler")
	}

	v.SetEnvPrefix("OPENCOMPILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "127.0.0.1:5000")
	v.SetDefault("workspace.dir", "temp_build")
	v.SetDefault("workspace.isolate", false)
	v.SetDefault("process.drain_timeout", 2*time.Second)
	v.SetDefault("process.read_chunk", 256)
	v.SetDefault("languages.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Paths may reference environment variables, e.g. ${HOME}/scratch.
	cfg.Workspace.Dir = os.ExpandEnv(cfg.Workspace.Dir)
	cfg.Languages.File = os.ExpandEnv(cfg.Languages.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Workspace.Dir == "" {
		return errors.New("workspace.dir must not be empty")
	}
	if c.Process.DrainTimeout <= 0 {
		return fmt.Errorf("process.drain_timeout must be positive, got %s", c.Process.DrainTimeout)
	}
	if c.Process.ReadChunk <= 0 {
		return fmt.Errorf("process.read_chunk must be positive, got %d", c.Process.ReadChunk)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
