// Package config loads container settings from a config file, .env files and
// STITCH_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/danpasecinic/stitch/logging"
)

const DefaultEnvPrefix = "STITCH"

type Config struct {
	Log       logging.Config  `mapstructure:"log"`
	AOP       AOPConfig       `mapstructure:"aop"`
	Container ContainerConfig `mapstructure:"container"`
}

type AOPConfig struct {
	// Include restricts aspect beans to names matching one of these regular
	// expressions.
	Include     []string `mapstructure:"include"`
	ExposeProxy bool     `mapstructure:"exposeProxy"`
	Frozen      bool     `mapstructure:"frozen"`
	Disabled    bool     `mapstructure:"disabled"`
}

type ContainerConfig struct {
	Parallel        bool          `mapstructure:"parallel"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

var defaults = map[string]any{
	"log.level":                 "info",
	"log.development":           false,
	"aop.include":               []string{},
	"aop.exposeProxy":           false,
	"aop.frozen":                false,
	"aop.disabled":              false,
	"container.parallel":        false,
	"container.shutdownTimeout": "0s",
}

type Option func(*loader)

type loader struct {
	envPrefix string
	envFiles  []string
}

// WithEnvFiles reads the given dotenv files instead of ".env".
func WithEnvFiles(files ...string) Option {
	return func(l *loader) {
		l.envFiles = files
	}
}

func WithEnvPrefix(prefix string) Option {
	return func(l *loader) {
		l.envPrefix = prefix
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg, err := decode(newViper(DefaultEnvPrefix))
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path (optional) and the dotenv files, with the process
// environment taking precedence over dotenv values, which take precedence
// over the file.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{envPrefix: DefaultEnvPrefix, envFiles: []string{".env"}}
	for _, opt := range opts {
		opt(l)
	}

	v := newViper(l.envPrefix)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := l.applyDotenv(v); err != nil {
		return nil, err
	}

	return decode(v)
}

func newViper(prefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// applyDotenv copies prefixed dotenv values into v without touching the
// process environment. Missing files are ignored.
func (l *loader) applyDotenv(v *viper.Viper) error {
	prefix := strings.ToUpper(l.envPrefix) + "_"
	for _, file := range l.envFiles {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read env file %s: %w", file, err)
		}
		for name, val := range values {
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			if _, set := os.LookupEnv(name); set {
				continue
			}
			key := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(name, prefix), "_", "."))
			v.Set(key, val)
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			includePatternsHook(),
		),
	))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsToDurationHook reads bare numbers, such as `shutdownTimeout: 5` or
// STITCH_CONTAINER_SHUTDOWNTIMEOUT=5, as seconds.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != durationType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		case reflect.String:
			secs, err := strconv.ParseFloat(strings.TrimSpace(data.(string)), 64)
			if err != nil {
				return data, nil
			}
			return time.Duration(secs * float64(time.Second)), nil
		}
		return data, nil
	}
}

var aopConfigType = reflect.TypeOf(AOPConfig{})

// includePatternsHook compiles every aop.include entry so a bad pattern fails
// the load instead of the container.
func includePatternsHook() mapstructure.DecodeHookFuncType {
	return func(_, to reflect.Type, data any) (any, error) {
		if to != aopConfigType {
			return data, nil
		}
		m, ok := data.(map[string]any)
		if !ok {
			return data, nil
		}
		var patterns []string
		switch include := m["include"].(type) {
		case string:
			patterns = strings.Split(include, ",")
		case []string:
			patterns = include
		case []any:
			for _, p := range include {
				patterns = append(patterns, fmt.Sprint(p))
			}
		}
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("aop.include %q: %w", p, err)
			}
		}
		return data, nil
	}
}
