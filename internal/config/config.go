package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Ingest    IngestConfig
	Chat      ChatConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

// LLMProviders is the closed set of chat provider families. Anything else is
// rejected at startup, never at request time.
var LLMProviders = []string{"openai", "groq", "anthropic", "ollama"}

// EmbeddingProviders is the closed set of embedding provider families.
var EmbeddingProviders = []string{"openai", "ollama"}

type LLMConfig struct {
	Provider     string // one of LLMProviders
	Model        string
	OpenAIKey    string
	GroqKey      string
	AnthropicKey string
	OllamaURL    string
	MaxRetries   int
}

type EmbeddingConfig struct {
	Provider string // one of EmbeddingProviders
	Model    string
}

type IngestConfig struct {
	SpoolDir     string
	ChunkSize    int
	ChunkOverlap int
}

type ChatConfig struct {
	TopK     int
	HistoryK int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 1500)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	topK, err := getEnvInt("RETRIEVAL_TOP_K", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_TOP_K: %w", err)
	}

	historyK, err := getEnvInt("MEMORY_K", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid MEMORY_K: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "groq"),
			Model:        getEnv("LLM_MODEL", "llama3-8b-8192"),
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			GroqKey:      getEnv("GROQ_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
			MaxRetries:   maxRetries,
		},
		Embedding: EmbeddingConfig{
			Provider: getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Ingest: IngestConfig{
			SpoolDir:     getEnv("UPLOAD_SPOOL_DIR", "/tmp/docutor-uploads"),
			ChunkSize:    chunkSize,
			ChunkOverlap: chunkOverlap,
		},
		Chat: ChatConfig{
			TopK:     topK,
			HistoryK: historyK,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate fails fast on configuration that would otherwise surface as
// per-request errors: missing env vars and unknown provider families.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	if !contains(LLMProviders, c.LLM.Provider) {
		return fmt.Errorf("unsupported LLM provider %q (supported: %s)",
			c.LLM.Provider, strings.Join(LLMProviders, ", "))
	}
	if !contains(EmbeddingProviders, c.Embedding.Provider) {
		return fmt.Errorf("unsupported embedding provider %q (supported: %s)",
			c.Embedding.Provider, strings.Join(EmbeddingProviders, ", "))
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIKey == "" {
			return fmt.Errorf("LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case "groq":
		if c.LLM.GroqKey == "" {
			return fmt.Errorf("LLM_PROVIDER=groq requires GROQ_API_KEY")
		}
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			return fmt.Errorf("LLM_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
	}
	if c.Embedding.Provider == "openai" && c.LLM.OpenAIKey == "" {
		return fmt.Errorf("EMBEDDING_PROVIDER=openai requires OPENAI_API_KEY")
	}

	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
