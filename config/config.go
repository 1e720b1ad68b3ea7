// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OBFWEB"

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "obfuscator-web.yaml"

// Config is the service configuration.
type Config struct {
	Port             string        `mapstructure:"port" yaml:"port"`
	OptionsFile      string        `mapstructure:"options_file" yaml:"options_file"`
	ObfuscatorBundle string        `mapstructure:"obfuscator_bundle" yaml:"obfuscator_bundle"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat        string        `mapstructure:"log_format" yaml:"log_format"`
	ToastTTL         time.Duration `mapstructure:"toast_ttl" yaml:"toast_ttl"`
	ToastExit        time.Duration `mapstructure:"toast_exit" yaml:"toast_exit"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:             "8080",
		OptionsFile:      "/data/options.json",
		ObfuscatorBundle: "",
		LogLevel:         "info",
		LogFormat:        "json",
		ToastTTL:         2200 * time.Millisecond,
		ToastExit:        180 * time.Millisecond,
	}
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads path, then OBFWEB_* variables, then PORT. An empty path looks
// for DefaultFile in the working directory and tolerates its absence; an
// explicit path must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// Bare PORT is honoured for container platforms that inject it.
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(DefaultFile)
		if err := v.ReadInConfig(); err != nil && !notFound(err) {
			return Config{}, fmt.Errorf("config: reading %s: %w", DefaultFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("config: port must not be empty")
	}
	if c.OptionsFile == "" {
		return errors.New("config: options_file must not be empty")
	}
	if c.ToastTTL <= 0 || c.ToastExit < 0 {
		return fmt.Errorf("config: invalid toast timing %s/%s", c.ToastTTL, c.ToastExit)
	}
	return nil
}

// WriteDefault writes the default settings to path as YAML, creating parent
// directories.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(fileView(Default()))
	if err != nil {
		return fmt.Errorf("config: marshalling defaults: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}

// file is the on-disk layout. Durations are written in their string form so
// the file reads back through viper.
type file struct {
	Port             string `yaml:"port"`
	OptionsFile      string `yaml:"options_file"`
	ObfuscatorBundle string `yaml:"obfuscator_bundle"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	ToastTTL         string `yaml:"toast_ttl"`
	ToastExit        string `yaml:"toast_exit"`
}

func fileView(c Config) file {
	return file{
		Port:             c.Port,
		OptionsFile:      c.OptionsFile,
		ObfuscatorBundle: c.ObfuscatorBundle,
		LogLevel:         c.LogLevel,
		LogFormat:        c.LogFormat,
		ToastTTL:         c.ToastTTL.String(),
		ToastExit:        c.ToastExit.String(),
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("port", c.Port)
	v.SetDefault("options_file", c.OptionsFile)
	v.SetDefault("obfuscator_bundle", c.ObfuscatorBundle)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
	v.SetDefault("toast_ttl", c.ToastTTL)
	v.SetDefault("toast_exit", c.ToastExit)
}

func notFound(err error) bool {
	var vErr viper.ConfigFileNotFoundError
	return errors.As(err, &vErr) || errors.Is(err, os.ErrNotExist)
}
