package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config aggregates process-wide settings. It is read once at startup.
type Config struct {
	// EncodeURLs is the "encode URLs" flag handed to every store.
	EncodeURLs   bool          `mapstructure:"encode_urls"`
	URLMaxLength int           `mapstructure:"url_max_length"`
	RegistryFile string        `mapstructure:"registry_file"`
	Storage      StorageConfig `mapstructure:"storage"`
}

type StorageConfig struct {
	Dir      string        `mapstructure:"dir"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() *Config {
	return &Config{
		EncodeURLs:   true,
		URLMaxLength: 120,
		Storage: StorageConfig{
			Dir:      filepath.Join(os.TempDir(), "bluequery"),
			CacheTTL: 10 * time.Minute,
		},
	}
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the prefix "BLUEQUERY" and the dot
// character in keys is replaced by an underscore. For example, "storage.dir"
// becomes "BLUEQUERY_STORAGE_DIR".
//
// When file is empty, a file named "config" in the working directory is used
// if present.
func Load(file string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("BLUEQUERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if cfg.URLMaxLength < 0 {
		return nil, errors.Errorf("url_max_length must not be negative, got %d", cfg.URLMaxLength)
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
