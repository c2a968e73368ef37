package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnv names the variable Load reads an optional config file path from.
const ConfigFileEnv = "SCAM_CONFIG"

// ErrUnsupportedFormat is returned for config files that are not YAML, JSON or TOML.
var ErrUnsupportedFormat = errors.New("unsupported config file format")

// AppConfig holds the indexer configuration.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env     string        `koanf:"env" validate:"required,oneof=dev prod"`
	Log     LogConfig     `koanf:"log"`
	Feed    FeedConfig    `koanf:"feed"`
	Filter  FilterConfig  `koanf:"filter"`
	Store   StoreConfig   `koanf:"store"`
	Exclude ExcludeConfig `koanf:"exclude"`
	Cache   CacheConfig   `koanf:"cache"`
	Metrics MetricsConfig `koanf:"metrics"`
}

type LogConfig struct {
	// Level controls log verbosity: "debug", "info", "warn", or "error".
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

// FeedConfig locates the scam feed. URL is http(s) or file://.
type FeedConfig struct {
	URL      string        `koanf:"url" validate:"required,http_url_or_file"`
	Timeout  time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxBytes int64         `koanf:"max_bytes" validate:"gt=0"`
}

// FilterConfig controls where the verified filter lands and how it is sized.
type FilterConfig struct {
	Path        string  `koanf:"path" validate:"required"`
	FPRate      float64 `koanf:"fp_rate" validate:"gt=0,lt=1"`
	Growth      uint32  `koanf:"growth" validate:"gte=2"`
	MinCapacity uint64  `koanf:"min_capacity" validate:"gte=0"`
}

type StoreConfig struct {
	DB string `koanf:"db" validate:"required"`
}

// ExcludeConfig adds domains to the built-in exclusion set.
type ExcludeConfig struct {
	Domains []string `koanf:"domains" validate:"dive,hostname_rfc1123"`
	File    string   `koanf:"file"`
}

type CacheConfig struct {
	// Size is the number of lookup decisions kept in memory; 0 disables caching.
	Size int `koanf:"size" validate:"gte=0"`
}

type MetricsConfig struct {
	// Textfile is an optional node-exporter textfile path.
	Textfile string `koanf:"textfile"`
}

// DEFAULT_APP_CONFIG holds the values used when no override is set.
var DEFAULT_APP_CONFIG = AppConfig{
	Env: "prod",
	Log: LogConfig{Level: "info"},
	Feed: FeedConfig{
		URL:      "https://api.cryptoscamdb.org/v1/scams",
		Timeout:  30 * time.Second,
		MaxBytes: 64 << 20,
	},
	Filter: FilterConfig{
		Path:        "/var/lib/scam-index/scams.sbf",
		FPRate:      0.01,
		Growth:      2,
		MinCapacity: 1000,
	},
	Store: StoreConfig{DB: "/var/lib/scam-index/catalog.db"},
	Exclude: ExcludeConfig{
		Domains: []string{},
	},
	Cache: CacheConfig{Size: 1000},
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"SCAM_ENV":                 "env",
	"SCAM_LOG_LEVEL":           "log.level",
	"SCAM_FEED_URL":            "feed.url",
	"SCAM_FEED_TIMEOUT":        "feed.timeout",
	"SCAM_FEED_MAX_BYTES":      "feed.max_bytes",
	"SCAM_FILTER_PATH":         "filter.path",
	"SCAM_FILTER_FP_RATE":      "filter.fp_rate",
	"SCAM_FILTER_GROWTH":       "filter.growth",
	"SCAM_FILTER_MIN_CAPACITY": "filter.min_capacity",
	"SCAM_STORE_DB":            "store.db",
	"SCAM_EXCLUDE_DOMAINS":     "exclude.domains",
	"SCAM_EXCLUDE_FILE":        "exclude.file",
	"SCAM_CACHE_SIZE":          "cache.size",
	"SCAM_METRICS_TEXTFILE":    "metrics.textfile",
}

// listKeys are split on spaces and commas.
var listKeys = map[string]bool{
	"exclude.domains": true,
}

// validHTTPURLOrFile accepts absolute http, https and file URLs.
func validHTTPURLOrFile(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "file":
		return u.Path != ""
	default:
		return false
	}
}

// envLoader loads SCAM_ variables named in envKeys; unknown names are ignored.
// It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SCAM_",
		TransformFunc: func(key, value string) (string, any) {
			mapped, ok := envKeys[key]
			if !ok {
				return "", nil
			}
			value = strings.TrimSpace(value)
			if listKeys[mapped] {
				return mapped, strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
			}
			return mapped, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads a YAML, JSON or TOML file chosen by extension.
var fileLoader = func(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return k.Load(file.Provider(path), parser)
}

// registerValidation registers the "http_url_or_file" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("http_url_or_file", validHTTPURLOrFile)
}

// Load is LoadFile with the path taken from $SCAM_CONFIG.
func Load() (*AppConfig, error) {
	return LoadFile(os.Getenv(ConfigFileEnv))
}

// LoadFile applies defaults, then the optional config file at path, then
// environment overrides, and validates the result.
func LoadFile(path string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}
	if path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return &cfg, nil
}
