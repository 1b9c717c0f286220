package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	BlobCache BlobCacheConfig `yaml:"blob_cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Variant   VariantConfig   `yaml:"variant"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info" env:"POSTDECK_LOG_LEVEL"`
}

// DatabaseConfig selects where post and asset records live.
type DatabaseConfig struct {
	Driver string `yaml:"driver" default:"sqlite"`
	Path   string `yaml:"path" default:".postdeck/postdeck.db"`
	DSN    string `yaml:"dsn" default:"" env:"POSTDECK_DATABASE_DSN"`
}

type SessionConfig struct {
	Name    string `yaml:"name" default:"draft-session"`
	Backend string `yaml:"backend" default:"sqlite"`
	Dir     string `yaml:"dir" default:".postdeck/sessions"`
}

type BlobCacheConfig struct {
	Backend       string        `yaml:"backend" default:"sqlite"`
	Dir           string        `yaml:"dir" default:".postdeck/blobs"`
	Compression   string        `yaml:"compression" default:"zstd"`
	RedisAddr     string        `yaml:"redis_addr" default:"localhost:6379" env:"POSTDECK_REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" default:"" env:"POSTDECK_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" default:"0"`
	TTL           time.Duration `yaml:"ttl" default:"0s"`
}

type StorageConfig struct {
	Backend           string `yaml:"backend" default:"fs"`
	Dir               string `yaml:"dir" default:".postdeck/storage"`
	Bucket            string `yaml:"bucket" default:"" env:"POSTDECK_S3_BUCKET"`
	Region            string `yaml:"region" default:"auto"`
	Endpoint          string `yaml:"endpoint" default:"" env:"POSTDECK_S3_ENDPOINT"`
	AccessKeyID       string `yaml:"access_key_id" default:"" env:"POSTDECK_S3_ACCESS_KEY_ID"`
	AccessKeySecret   string `yaml:"access_key_secret" default:"" env:"POSTDECK_S3_ACCESS_KEY_SECRET"`
	UploadConcurrency int    `yaml:"upload_concurrency" default:"4"`
}

// VariantConfig is the output size of rendered image variants.
type VariantConfig struct {
	Width  int `yaml:"width" default:"1080"`
	Height int `yaml:"height" default:"1920"`
}

// LoadConfig reads the YAML file at path on top of the defaults, then lets the
// environment override any field carrying an env tag. A missing file is not an
// error.
func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks every backend selector against the implementations that exist.
func (c *Config) Validate() error {
	choices := []struct {
		field, value string
		allowed      []string
	}{
		{"database.driver", c.Database.Driver, DatabaseDrivers},
		{"session.backend", c.Session.Backend, SessionBackends},
		{"blob_cache.backend", c.BlobCache.Backend, BlobCacheBackends},
		{"blob_cache.compression", c.BlobCache.Compression, Compressions},
		{"storage.backend", c.Storage.Backend, StorageBackends},
	}
	for _, ch := range choices {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("%w: %s %q (want one of %s)", ErrUnknownBackend, ch.field, ch.value, strings.Join(ch.allowed, ", "))
		}
	}

	if c.Database.Driver == DriverPostgres && c.Database.DSN == "" {
		return fmt.Errorf("%w: database.dsn is required for postgres", ErrMissingSetting)
	}
	if c.Storage.Backend == BackendS3 && c.Storage.Bucket == "" {
		return fmt.Errorf("%w: storage.bucket is required for s3", ErrMissingSetting)
	}
	if c.Variant.Width <= 0 || c.Variant.Height <= 0 {
		return fmt.Errorf("%w: variant size %dx%d", ErrInvalidValue, c.Variant.Width, c.Variant.Height)
	}
	if c.BlobCache.TTL < 0 || c.Storage.UploadConcurrency < 0 {
		return fmt.Errorf("%w: negative ttl or upload concurrency", ErrInvalidValue)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

var durationType = reflect.TypeOf(time.Duration(0))

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
		if defaultValue == "" || (field.Kind() == reflect.Slice && field.Len() > 0) {
			continue
		}

		if err := setField(field, defaultValue); err != nil {
			configLogger.Warn().
				Err(err).
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported default value")
		}
	}
}

// applyEnv overrides fields that carry an env tag with the variable's value, if set.
func applyEnv(config interface{}, lookup func(string) (string, bool)) error {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field.Addr().Interface(), lookup); err != nil {
				return err
			}
			continue
		}

		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := setField(field, value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		val, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(val)
	case reflect.Int, reflect.Int64:
		val, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(val)
	case reflect.Float64:
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(val)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
		for j, part := range parts {
			slice.Index(j).SetString(strings.TrimSpace(part))
		}
		field.Set(slice)
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

// Marshal renders c as YAML with a header comment, the format of `config generate`.
func Marshal(c *Config) ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	header := "# postdeck configuration\n# Secrets may also be supplied through POSTDECK_* environment variables.\n\n"
	return append([]byte(header), data...), nil
}
