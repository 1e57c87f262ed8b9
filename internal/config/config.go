package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig       `toml:"app"`
	LLM       LLMConfig       `toml:"llm"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Store     StoreConfig     `toml:"store"`
	MySQL     MySQLConfig     `toml:"mysql"`
	Redis     RedisConfig     `toml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq"`
	Search    SearchConfig    `toml:"search"`
	Ingest    IngestConfig    `toml:"ingest"`
}

type AppConfig struct {
	Name       string `toml:"name"`
	Env        string `toml:"env"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	GinMode    string `toml:"gin_mode"`
	CORSOrigin string `toml:"cors_origin"`
}

type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
}

type RetrievalConfig struct {
	TopK         int     `toml:"top_k"`
	Threshold    float64 `toml:"threshold"`
	ChunkSize    int     `toml:"chunk_size"`
	ChunkOverlap int     `toml:"chunk_overlap"`
}

// StoreConfig selects the chunk store backend: "memory", "sqlite" or "mysql".
type StoreConfig struct {
	Backend      string `toml:"backend"`
	SQLitePath   string `toml:"sqlite_path"`
	EmbeddingDim int    `toml:"embedding_dim"`
}

type MySQLConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DB       string `toml:"db"`
	Params   string `toml:"params"`
}

// RedisConfig configures the query embedding cache. An empty Addr disables it.
type RedisConfig struct {
	Addr              string `toml:"addr"`
	Password          string `toml:"password"`
	DB                int    `toml:"db"`
	EmbeddingTTLHours int    `toml:"embedding_ttl_hours"`
}

// RabbitMQConfig configures the ingest audit trail. An empty URL disables it.
type RabbitMQConfig struct {
	URL              string `toml:"url"`
	IngestAuditQueue string `toml:"ingest_audit_queue"`
}

type SearchConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxResults     int    `toml:"max_results"`
}

type IngestConfig struct {
	SeedCorpus bool   `toml:"seed_corpus"`
	WatchDir   string `toml:"watch_dir"`
	MaxPDFMB   int    `toml:"max_pdf_mb"`
}

func Load() (*Config, error) {
	// Optional .env for local development, real environment wins.
	_ = godotenv.Load()

	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.MySQL.User,
		c.MySQL.Password,
		c.MySQL.Host,
		c.MySQL.Port,
		c.MySQL.DB,
		c.MySQL.Params,
	)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:       "docuchat",
			Env:        "dev",
			Host:       "0.0.0.0",
			Port:       8000,
			GinMode:    "debug",
			CORSOrigin: "*",
		},
		LLM: LLMConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "gemma2:2b",
			EmbeddingModel: "nomic-embed-text",
		},
		Retrieval: RetrievalConfig{
			TopK:         4,
			Threshold:    0.7,
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Store: StoreConfig{
			Backend:      "memory",
			SQLitePath:   "data/docuchat.db",
			EmbeddingDim: 768,
		},
		MySQL: MySQLConfig{
			Host:     "127.0.0.1",
			Port:     3306,
			User:     "root",
			Password: "",
			DB:       "docuchat",
			Params:   "parseTime=true&loc=Local&charset=utf8mb4",
		},
		Redis: RedisConfig{
			Addr:              "",
			Password:          "",
			DB:                0,
			EmbeddingTTLHours: 24,
		},
		RabbitMQ: RabbitMQConfig{
			URL:              "",
			IngestAuditQueue: "docuchat.ingest.audit",
		},
		Search: SearchConfig{
			BaseURL:        "https://api.duckduckgo.com",
			TimeoutSeconds: 10,
			MaxResults:     3,
		},
		Ingest: IngestConfig{
			SeedCorpus: true,
			WatchDir:   "",
			MaxPDFMB:   10,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.CORSOrigin = getEnv("CORS_ORIGIN", cfg.App.CORSOrigin)

	cfg.LLM.BaseURL = getEnv("OLLAMA_BASE_URL", cfg.LLM.BaseURL)
	// MODEL_NAME is the historical name, LLM_MODEL wins when both are set.
	cfg.LLM.Model = getEnv("MODEL_NAME", cfg.LLM.Model)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.EmbeddingModel = getEnv("EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)

	cfg.Retrieval.TopK = getEnvAsInt("RETRIEVAL_TOP_K", cfg.Retrieval.TopK)
	cfg.Retrieval.Threshold = getEnvAsFloat("SIMILARITY_THRESHOLD", cfg.Retrieval.Threshold)
	cfg.Retrieval.ChunkSize = getEnvAsInt("CHUNK_SIZE", cfg.Retrieval.ChunkSize)
	cfg.Retrieval.ChunkOverlap = getEnvAsInt("CHUNK_OVERLAP", cfg.Retrieval.ChunkOverlap)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.SQLitePath = getEnv("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.EmbeddingDim = getEnvAsInt("EMBEDDING_DIM", cfg.Store.EmbeddingDim)

	cfg.MySQL.Host = getEnv("MYSQL_HOST", cfg.MySQL.Host)
	cfg.MySQL.Port = getEnvAsInt("MYSQL_PORT", cfg.MySQL.Port)
	cfg.MySQL.User = getEnv("MYSQL_USER", cfg.MySQL.User)
	cfg.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.MySQL.Password)
	cfg.MySQL.DB = getEnv("MYSQL_DB", cfg.MySQL.DB)
	cfg.MySQL.Params = getEnv("MYSQL_PARAMS", cfg.MySQL.Params)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.EmbeddingTTLHours = getEnvAsInt("REDIS_EMBEDDING_TTL_HOURS", cfg.Redis.EmbeddingTTLHours)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.IngestAuditQueue = getEnv("RABBITMQ_INGEST_AUDIT_QUEUE", cfg.RabbitMQ.IngestAuditQueue)

	cfg.Search.BaseURL = getEnv("SEARCH_BASE_URL", cfg.Search.BaseURL)
	cfg.Search.TimeoutSeconds = getEnvAsInt("SEARCH_TIMEOUT_SECONDS", cfg.Search.TimeoutSeconds)
	cfg.Search.MaxResults = getEnvAsInt("SEARCH_MAX_RESULTS", cfg.Search.MaxResults)

	cfg.Ingest.SeedCorpus = getEnvAsBool("SEED_CORPUS", cfg.Ingest.SeedCorpus)
	cfg.Ingest.WatchDir = getEnv("WATCH_DIR", cfg.Ingest.WatchDir)
	cfg.Ingest.MaxPDFMB = getEnvAsInt("MAX_PDF_MB", cfg.Ingest.MaxPDFMB)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
