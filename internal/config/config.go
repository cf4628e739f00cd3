package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

const SupportedVersion = "1"

// Config represents the complete configuration structure
type Config struct {
	Version  string         `yaml:"version" toml:"version" default:"1"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Delivery DeliveryConfig `yaml:"delivery" toml:"delivery"`
	Session  SessionConfig  `yaml:"session" toml:"session"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" default:"info"`
	Format string `yaml:"format" toml:"format" default:"console"`
}

type ServerConfig struct {
	Host string `yaml:"host" toml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" toml:"port" default:"12600"`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

type StorageConfig struct {
	// Backend is one of memory, fs, sqlite, redis or s3.
	Backend     string      `yaml:"backend" toml:"backend" default:"fs"`
	Path        string      `yaml:"path" toml:"path" default:"./data"`
	Namespace   string      `yaml:"namespace" toml:"namespace" default:"postdesk"`
	Compression string      `yaml:"compression" toml:"compression" default:"zstd"`
	Redis       RedisConfig `yaml:"redis" toml:"redis"`
	S3          S3Config    `yaml:"s3" toml:"s3"`
}

type RedisConfig struct {
	URL            string `yaml:"url" toml:"url" default:"redis://localhost:6379/0"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" default:"3"`
}

type S3Config struct {
	Endpoint       string `yaml:"endpoint" toml:"endpoint" default:""`
	Region         string `yaml:"region" toml:"region" default:"auto"`
	Bucket         string `yaml:"bucket" toml:"bucket" default:"postdesk"`
	Prefix         string `yaml:"prefix" toml:"prefix" default:"postdesk/"`
	TimeoutSeconds int    `yaml:"timeout_seconds" toml:"timeout_seconds" default:"10"`

	AccessKeyID     string `yaml:"-" toml:"-"`
	SecretAccessKey string `yaml:"-" toml:"-"`
}

type DeliveryConfig struct {
	// Mode is http (relay endpoint) or telegram (Bot API).
	Mode           string         `yaml:"mode" toml:"mode" default:"http"`
	Endpoint       string         `yaml:"endpoint" toml:"endpoint" default:"http://localhost:8080/api/telegram/send"`
	TimeoutSeconds int            `yaml:"timeout_seconds" toml:"timeout_seconds" default:"30"`
	Telegram       TelegramConfig `yaml:"telegram" toml:"telegram"`
}

type TelegramConfig struct {
	APIEndpoint   string `yaml:"api_endpoint" toml:"api_endpoint" default:""`
	DefaultChatID string `yaml:"default_chat_id" toml:"default_chat_id" default:""`

	Token string `yaml:"-" toml:"-"`
}

type SessionConfig struct {
	ReadyTimeoutMS int `yaml:"ready_timeout_ms" toml:"ready_timeout_ms" default:"2000"`
}

func (s SessionConfig) ReadyTimeout() time.Duration {
	return time.Duration(s.ReadyTimeoutMS) * time.Millisecond
}

func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Environment variables holding secrets. They never come from config files.
const (
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvS3AccessKey   = "S3_ACCESS_KEY_ID"
	EnvS3SecretKey   = "S3_SECRET_ACCESS_KEY"
	EnvRedisURL      = "REDIS_URL"
)

var (
	StorageBackends = []string{"memory", "fs", "sqlite", "redis", "s3"}
	DeliveryModes   = []string{"http", "telegram"}
)

var AppConfig *Config

// LoadConfig loads path into AppConfig.
func LoadConfig(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads a YAML or TOML file, chosen by extension, over the defaults.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := unmarshal(path, data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	configLogger.Info().Str("path", path).Msg("Config loaded")
	return config, nil
}

func unmarshal(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(data, config)
	default:
		return yaml.Unmarshal(data, config)
	}
}

func (c *Config) Validate() error {
	if c.Version != SupportedVersion {
		return fmt.Errorf("unsupported configuration version %q (expected %q)", c.Version, SupportedVersion)
	}
	if !slices.Contains(StorageBackends, c.Storage.Backend) {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if !slices.Contains(DeliveryModes, c.Delivery.Mode) {
		return fmt.Errorf("unknown delivery mode %q", c.Delivery.Mode)
	}
	if c.Delivery.Telegram.DefaultChatID != "" {
		if _, err := strconv.ParseInt(c.Delivery.Telegram.DefaultChatID, 10, 64); err != nil {
			return fmt.Errorf("invalid telegram default_chat_id %q", c.Delivery.Telegram.DefaultChatID)
		}
	}
	return nil
}

// LoadEnv loads .env style files, if present, and copies secrets from the
// environment into c.
func (c *Config) LoadEnv(files ...string) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			configLogger.Warn().Err(err).Str("file", f).Msg("Could not load env file")
		}
	}

	c.Delivery.Telegram.Token = os.Getenv(EnvTelegramToken)
	c.Storage.S3.AccessKeyID = os.Getenv(EnvS3AccessKey)
	c.Storage.S3.SecretAccessKey = os.Getenv(EnvS3SecretKey)
	if url := os.Getenv(EnvRedisURL); url != "" {
		c.Storage.Redis.URL = url
	}
}

// Marshal encodes c in the format matching path's extension.
func Marshal(path string, c *Config) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(c); err != nil {
			return nil, err
		}
		return []byte(sb.String()), nil
	}
	return yaml.Marshal(c)
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int, reflect.Int64:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
