package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Ingest    IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	Graph     GraphConfig     `mapstructure:"graph" yaml:"graph"`
	Vector    VectorConfig    `mapstructure:"vector" yaml:"vector"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Query     QueryConfig     `mapstructure:"query" yaml:"query"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type IngestConfig struct {
	Workers          int      `mapstructure:"workers" yaml:"workers"`
	BatchSize        int      `mapstructure:"batch_size" yaml:"batch_size"`
	EmbedConcurrency int      `mapstructure:"embed_concurrency" yaml:"embed_concurrency"`
	EmbedRPS         float64  `mapstructure:"embed_rps" yaml:"embed_rps"` // 0 = unlimited
	QuotaRPM         int64    `mapstructure:"quota_rpm" yaml:"quota_rpm"` // shared via cache.redis_addr, 0 = off
	QuotaRPD         int64    `mapstructure:"quota_rpd" yaml:"quota_rpd"`
	IgnoredDirs      []string `mapstructure:"ignored_dirs" yaml:"ignored_dirs"`
	Extensions       []string `mapstructure:"extensions" yaml:"extensions"`
	MaxFileBytes     int64    `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
}

type GraphConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"` // "neo4j", "kuzu", "memory"
	URI      string `mapstructure:"uri" yaml:"uri"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	KuzuPath string `mapstructure:"kuzu_path" yaml:"kuzu_path"`
}

type VectorConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"` // "postgres", "sqlite", "memory"
	DSN        string `mapstructure:"dsn" yaml:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Table      string `mapstructure:"table" yaml:"table"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"` // "gemini", "openai"
	Model      string `mapstructure:"model" yaml:"model"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider" yaml:"provider"` // "gemini", "openai"
	Model        string        `mapstructure:"model" yaml:"model"`
	Temperature  float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	UseKeychain  bool          `mapstructure:"use_keychain" yaml:"use_keychain"`
}

// CacheConfig controls the embedding cache.
type CacheConfig struct {
	Backend   string        `mapstructure:"backend" yaml:"backend"` // "none", "redis", "bolt"
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db" yaml:"redis_db"`
	BoltPath  string        `mapstructure:"bolt_path" yaml:"bolt_path"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type QueryConfig struct {
	TopK          int `mapstructure:"top_k" yaml:"top_k"`
	MaxHops       int `mapstructure:"max_hops" yaml:"max_hops"`
	NeighborLimit int `mapstructure:"neighbor_limit" yaml:"neighbor_limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"` // empty = console only
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// DefaultIgnoredDirs are never descended into during a scan.
var DefaultIgnoredDirs = []string{
	"node_modules", ".git", "dist", "build", ".next", ".cache",
	"vendor", "venv", ".venv", "__pycache__", "target", "coverage", ".idea", ".vscode",
}

// DefaultExtensions is the scan whitelist.
var DefaultExtensions = []string{
	".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts",
	".py", ".pyi", ".java", ".go", ".cpp", ".c",
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".codegraph")
	return &Config{
		Ingest: IngestConfig{
			Workers:          8,
			BatchSize:        100,
			EmbedConcurrency: 4,
			IgnoredDirs:      append([]string(nil), DefaultIgnoredDirs...),
			Extensions:       append([]string(nil), DefaultExtensions...),
			MaxFileBytes:     1024 * 1024,
		},
		Graph: GraphConfig{
			Backend:  "neo4j",
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
			KuzuPath: filepath.Join(dataDir, "graph.kuzu"),
		},
		Vector: VectorConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(dataDir, "vectors.db"),
			Table:      "code_chunks",
		},
		Embedding: EmbeddingConfig{
			Provider:   "gemini",
			Model:      "gemini-embedding-001",
			Dimensions: 3072,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			MaxTokens:   2048,
			Timeout:     60 * time.Second,
			UseKeychain: true,
		},
		Cache: CacheConfig{
			Backend:   "none",
			RedisAddr: "localhost:6379",
			BoltPath:  filepath.Join(dataDir, "embeddings.bolt"),
			TTL:       7 * 24 * time.Hour,
		},
		Query: QueryConfig{
			TopK:          5,
			MaxHops:       2,
			NeighborLimit: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env files, the YAML config file and environment overrides,
// in increasing order of precedence.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("ingest", cfg.Ingest)
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("vector", cfg.Vector)
	v.SetDefault("embedding", cfg.Embedding)
	v.SetDefault("llm", cfg.LLM)
	v.SetDefault("cache", cfg.Cache)
	v.SetDefault("query", cfg.Query)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("CODEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".codegraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".codegraph"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg, NewKeyringManager())

	return cfg, nil
}

// loadEnvFiles loads .env files; godotenv never overwrites variables that
// are already set, so the first file wins.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".codegraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// secretStore is the subset of KeyringManager used for API key fallback.
type secretStore interface {
	IsAvailable() bool
	GetAPIKey(provider string) (string, error)
}

// applyEnvOverrides applies conventional (unprefixed) environment variables.
// API key precedence: env var, then keychain, then config file.
func applyEnvOverrides(cfg *Config, keys secretStore) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USERNAME"); user != "" {
		cfg.Graph.User = user
	} else if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Graph.User = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		cfg.Graph.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		cfg.Graph.Database = db
	}
	if path := os.Getenv("KUZU_PATH"); path != "" {
		cfg.Graph.KuzuPath = expandPath(path)
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Vector.DSN = dsn
	}
	if path := os.Getenv("VECTOR_DB_PATH"); path != "" {
		cfg.Vector.SQLitePath = expandPath(path)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}

	if model := os.Getenv("GEMINI_MODEL"); model != "" && cfg.LLM.Provider == "gemini" {
		cfg.LLM.Model = model
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.Model = model
	}
	if timeout := os.Getenv("LLM_TIMEOUT_SECONDS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			cfg.LLM.Timeout = time.Duration(secs) * time.Second
		}
	}

	cfg.LLM.GeminiAPIKey = resolveKey(cfg.LLM.GeminiAPIKey, ProviderGemini, cfg.LLM.UseKeychain, keys, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	cfg.LLM.OpenAIAPIKey = resolveKey(cfg.LLM.OpenAIAPIKey, ProviderOpenAI, cfg.LLM.UseKeychain, keys, "OPENAI_API_KEY")

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func resolveKey(current, provider string, useKeychain bool, keys secretStore, envVars ...string) string {
	for _, name := range envVars {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	if current != "" || !useKeychain || keys == nil || !keys.IsAvailable() {
		return current
	}
	if key, err := keys.GetAPIKey(provider); err == nil && key != "" {
		return key
	}
	return current
}

// APIKey returns the key for the given provider.
func (c *LLMConfig) APIKey(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return c.GeminiAPIKey
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes the configuration without API keys; those belong in the
// keychain or the environment.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	redacted := *c
	redacted.LLM.GeminiAPIKey = ""
	redacted.LLM.OpenAIAPIKey = ""
	redacted.Graph.Password = ""

	v.Set("ingest", redacted.Ingest)
	v.Set("graph", redacted.Graph)
	v.Set("vector", redacted.Vector)
	v.Set("embedding", redacted.Embedding)
	v.Set("llm", redacted.LLM)
	v.Set("cache", redacted.Cache)
	v.Set("query", redacted.Query)
	v.Set("log", redacted.Log)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
