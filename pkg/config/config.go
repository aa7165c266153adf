// Package config holds the typed runtime configuration, loaded from an
// optional YAML file with environment-variable overrides. A .env file in
// the working directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Backend  BackendConfig  `koanf:"backend"`
	Services ServicesConfig `koanf:"services"`
	Qdrant   QdrantConfig   `koanf:"qdrant"`
	Redis    RedisConfig    `koanf:"redis"`
	Frappe   FrappeConfig   `koanf:"frappe"`
	Flows    FlowsConfig    `koanf:"flows"`
	LLM      LLMConfig      `koanf:"llm"`
	Auth     AuthConfig     `koanf:"auth"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Output string `koanf:"output"`
}

type BackendConfig struct {
	// BaseURL is the PHP backend. Absence is a fatal validation error.
	BaseURL  string `koanf:"base_url"`
	ModuleID string `koanf:"module_id"`
	ZoneID   string `koanf:"zone_id"`
}

type ServicesConfig struct {
	NLUURL        string `koanf:"nlu_url"`
	FlowEngineURL string `koanf:"flow_engine_url"`
	SearchAPIURL  string `koanf:"search_api_url"`
	EmbeddingURL  string `koanf:"embedding_url"`
	RoutingURL    string `koanf:"routing_url"`
	ImageAIURL    string `koanf:"image_ai_url"`
	TrainingURL   string `koanf:"training_url"`
}

type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey string `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type FrappeConfig struct {
	BaseURL   string `koanf:"base_url"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

type FlowsConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

type LLMConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
}

type AuthConfig struct {
	JWTSecret    string `koanf:"jwt_secret"`
	WebhookToken string `koanf:"webhook_token"`
}

// Default returns the baseline configuration before file and env
// overrides.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
		Backend: BackendConfig{ModuleID: "1", ZoneID: "1"},
		Qdrant:  QdrantConfig{Host: "localhost", Port: 6334},
		Redis:   RedisConfig{Addr: ""},
		Flows:   FlowsConfig{Dir: "flows"},
		LLM:     LLMConfig{Model: "gpt-4o-mini"},
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)(?::([^}]*))?\}`)

// expandEnv substitutes ${VAR} and ${VAR:default} in raw YAML before
// parsing.
func expandEnv(raw []byte) []byte {
	return envPattern.ReplaceAllFunc(raw, func(m []byte) []byte {
		groups := envPattern.FindSubmatch(m)
		if v, ok := os.LookupEnv(string(groups[1])); ok {
			return []byte(v)
		}
		return groups[2]
	})
}

// expandingYAML runs env expansion over the raw file before the YAML
// parse, so file values can reference ${VAR} and ${VAR:default}.
type expandingYAML struct {
	inner koanf.Parser
}

func (p expandingYAML) Unmarshal(b []byte) (map[string]any, error) {
	return p.inner.Unmarshal(expandEnv(b))
}

func (p expandingYAML) Marshal(m map[string]any) ([]byte, error) {
	return p.inner.Marshal(m)
}

// Load builds the configuration: defaults, then the YAML file (when
// path is non-empty), then environment variables.
func Load(path string) (*Config, error) {
	// Missing .env is fine; an unreadable one is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), expandingYAML{yaml.Parser()}); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv maps the platform environment variables onto config fields.
// Env always wins over file values.
func applyEnv(cfg *Config) {
	setStr := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}

	setStr(&cfg.Backend.BaseURL, "PHP_BACKEND_URL")
	setStr(&cfg.Backend.ModuleID, "MODULE_ID")
	setStr(&cfg.Backend.ZoneID, "ZONE_ID")

	setStr(&cfg.Services.NLUURL, "NLU_SERVICE_URL")
	setStr(&cfg.Services.FlowEngineURL, "FLOW_ENGINE_URL")
	setStr(&cfg.Services.SearchAPIURL, "SEARCH_API_URL")
	setStr(&cfg.Services.EmbeddingURL, "EMBEDDING_SERVICE_URL")
	setStr(&cfg.Services.RoutingURL, "ROUTING_SERVICE_URL")
	setStr(&cfg.Services.ImageAIURL, "IMAGE_AI_URL")
	setStr(&cfg.Services.TrainingURL, "TRAINING_SERVICE_URL")

	// OPENSEARCH_URL is the legacy alias for the vector search host; a
	// bare host:port is split onto the qdrant fields.
	setStr(&cfg.Qdrant.Host, "QDRANT_HOST")
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Qdrant.Port = p
		}
	}
	setStr(&cfg.Qdrant.APIKey, "QDRANT_API_KEY")
	if legacy := os.Getenv("OPENSEARCH_URL"); legacy != "" && os.Getenv("QDRANT_HOST") == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(legacy, "http://"), "https://")
		if h, p, found := strings.Cut(host, ":"); found {
			cfg.Qdrant.Host = h
			if n, err := strconv.Atoi(strings.TrimSuffix(p, "/")); err == nil {
				cfg.Qdrant.Port = n
			}
		} else {
			cfg.Qdrant.Host = strings.TrimSuffix(host, "/")
		}
	}

	setStr(&cfg.Redis.Addr, "REDIS_ADDR", "REDIS_URL")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")

	setStr(&cfg.Frappe.BaseURL, "FRAPPE_URL")
	setStr(&cfg.Frappe.APIKey, "FRAPPE_API_KEY")
	setStr(&cfg.Frappe.APISecret, "FRAPPE_API_SECRET")

	setStr(&cfg.Flows.Dir, "FLOWS_DIR")

	setStr(&cfg.LLM.BaseURL, "LLM_BASE_URL", "OPENAI_BASE_URL")
	setStr(&cfg.LLM.APIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	setStr(&cfg.LLM.Model, "LLM_MODEL")

	setStr(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setStr(&cfg.Auth.WebhookToken, "WEBHOOK_VERIFY_TOKEN")

	setStr(&cfg.Logging.Level, "LOG_LEVEL")
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

// Validate enforces the hard requirements. The PHP backend URL is the
// only strictly fatal one; everything else degrades at runtime.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("PHP_BACKEND_URL (backend.base_url) is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
