package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MQConfig struct {
	URL string `yaml:"url"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type InsightConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type StoreConfig struct {
	// Backend selects habit/user persistence: postgres, redis or memory.
	// Empty means postgres when DB credentials are present, otherwise the
	// best configured fallback.
	Backend string `yaml:"backend"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type Config struct {
	DB      DBConfig      `yaml:"db"`
	Redis   RedisConfig   `yaml:"redis"`
	MQ      MQConfig      `yaml:"mq"`
	JWT     JWTConfig     `yaml:"jwt"`
	Insight InsightConfig `yaml:"insight"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

// Configured predicates. Missing credentials degrade the matching feature to
// a labeled "not configured" state instead of crashing at startup.

func (c DBConfig) Configured() bool      { return c.Host != "" && c.Name != "" }
func (c RedisConfig) Configured() bool   { return c.Addr != "" }
func (c MQConfig) Configured() bool      { return c.URL != "" }
func (c JWTConfig) Configured() bool     { return c.Secret != "" }
func (c InsightConfig) Configured() bool { return c.APIKey != "" }

func Load() *Config {
	cfg := &Config{
		Insight: InsightConfig{
			Model:   "gemini-2.0-flash",
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		},
		Server: ServerConfig{Port: ":8080"},
	}

	f, err := os.Open("config.yaml")
	if err != nil {
		log.Printf("config.yaml not found, relying on environment: %v", err)
	} else {
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			log.Fatalf("failed to decode config.yaml: %v", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = n
		}
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Insight.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.Insight.Model = model
	}
	if base := os.Getenv("GEMINI_BASE_URL"); base != "" {
		cfg.Insight.BaseURL = base
	}

	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
}
