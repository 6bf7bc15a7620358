package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Analytics AnalyticsConfig `yaml:"analytics"`
}

type ServerConfig struct {
	Host        string `yaml:"host" validate:"required"`
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	Environment string `yaml:"environment" validate:"oneof=development production test"`
}

type DBConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type TransportConfig struct {
	Mode string `yaml:"mode" validate:"oneof=http stdio"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// IndexConfig selects and configures the search index backend.
type IndexConfig struct {
	Backend    string        `yaml:"backend" validate:"oneof=typesense bleve"`
	URL        string        `yaml:"url" validate:"required_if=Backend typesense"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection" validate:"required"`
	QueryBy    string        `yaml:"query_by" validate:"required"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	BlevePath  string        `yaml:"bleve_path"`
	// Seed is a JSON array of entries loaded into the bleve index at startup.
	Seed string `yaml:"seed"`
}

type SuggestConfig struct {
	Debounce  time.Duration `yaml:"debounce" validate:"gte=0"`
	MinLength int           `yaml:"min_length" validate:"min=1"`
	Limit     int           `yaml:"limit" validate:"min=1,max=50"`
}

type AnalyticsConfig struct {
	Enabled          bool   `yaml:"enabled"`
	LocationFallback string `yaml:"location_fallback"`
}

var validate = validator.New()

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("SITESEARCH_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Environment: "development",
		},
		DB: DBConfig{
			Path: "sitesearch.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Index: IndexConfig{
			Backend:    "bleve",
			Collection: "entries",
			QueryBy:    "name,description",
			Timeout:    5 * time.Second,
		},
		Suggest: SuggestConfig{
			Debounce:  250 * time.Millisecond,
			MinLength: 2,
			Limit:     8,
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			LocationFallback: "Localhost, Development",
		},
	}
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("SITESEARCH_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("SITESEARCH_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid SITESEARCH_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if env := os.Getenv("SITESEARCH_ENV"); env != "" {
		cfg.Server.Environment = env
	}
	if dbPath := os.Getenv("SITESEARCH_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("SITESEARCH_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if mode := os.Getenv("SITESEARCH_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if enabled := os.Getenv("SITESEARCH_AUTH_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid SITESEARCH_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = v
	}
	if backend := os.Getenv("SITESEARCH_INDEX_BACKEND"); backend != "" {
		cfg.Index.Backend = backend
	}
	if url := os.Getenv("SITESEARCH_TYPESENSE_URL"); url != "" {
		cfg.Index.URL = url
	}
	if key := os.Getenv("SITESEARCH_TYPESENSE_API_KEY"); key != "" {
		cfg.Index.APIKey = key
	}
	if collection := os.Getenv("SITESEARCH_TYPESENSE_COLLECTION"); collection != "" {
		cfg.Index.Collection = collection
	}
	if path := os.Getenv("SITESEARCH_BLEVE_PATH"); path != "" {
		cfg.Index.BlevePath = path
	}
	if enabled := os.Getenv("SITESEARCH_ANALYTICS_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid SITESEARCH_ANALYTICS_ENABLED: %w", err)
		}
		cfg.Analytics.Enabled = v
	}
	if seed := os.Getenv("SITESEARCH_BLEVE_SEED"); seed != "" {
		cfg.Index.Seed = seed
	}
	if debounce := os.Getenv("SITESEARCH_SUGGEST_DEBOUNCE"); debounce != "" {
		d, err := time.ParseDuration(debounce)
		if err != nil {
			return fmt.Errorf("invalid SITESEARCH_SUGGEST_DEBOUNCE: %w", err)
		}
		cfg.Suggest.Debounce = d
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Production reports whether the server runs in the production environment.
func (c Config) Production() bool {
	return c.Server.Environment == "production"
}
