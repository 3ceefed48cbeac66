package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Qdrant   QdrantConfig
	Storage  StorageConfig
	Search   SearchConfig
	Worker   WorkerConfig
	Cache    CacheConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// LLMConfig selects the provider used for field extraction and embeddings.
type LLMConfig struct {
	Provider           string
	GeminiAPIKey       string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	Model              string
	EmbeddingModel     string
	EmbeddingDimension int
	MaxRetries         int
	RetryInitialDelay  time.Duration
}

// QdrantConfig is optional. An empty URL disables the mirrored vector index.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
}

func (q QdrantConfig) Enabled() bool {
	return q.URL != ""
}

type StorageConfig struct {
	Backend              string
	UploadPath           string
	MaxFileSize          int64
	DriveCredentialsFile string
	DriveFolderID        string
}

type SearchConfig struct {
	SimilarityThreshold float64
	PoolSize            int
	CaseFolding         bool
}

type WorkerConfig struct {
	Concurrency int
}

// CacheConfig is optional. An empty Dir disables the embedding cache.
type CacheConfig struct {
	Dir string
	TTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StorageLocal = "local"
	StorageDrive = "drive"
)

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini))

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "cv_analyser"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LLM: LLMConfig{
			Provider:           provider,
			GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
			Model:              getEnv("LLM_MODEL", defaultModel(provider)),
			EmbeddingModel:     getEnv("EMBEDDING_MODEL", defaultEmbeddingModel(provider)),
			EmbeddingDimension: getEnvAsInt("EMBEDDING_DIMENSION", defaultEmbeddingDimension(provider)),
			MaxRetries:         getEnvAsInt("LLM_MAX_RETRIES", 3),
			RetryInitialDelay:  getEnvAsDuration("LLM_RETRY_INITIAL_DELAY", "2s"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", ""),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "candidates"),
		},
		Storage: StorageConfig{
			Backend:              strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
			UploadPath:           getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize:          getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			DriveCredentialsFile: getEnv("GOOGLE_DRIVE_CREDENTIALS_FILE", "credentials.json"),
			DriveFolderID:        getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		},
		Search: SearchConfig{
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.8),
			PoolSize:            getEnvAsInt("SEARCH_POOL_SIZE", 8),
			CaseFolding:         getEnvAsBool("SEARCH_CASE_FOLDING", false),
		},
		Worker: WorkerConfig{
			Concurrency: getEnvAsInt("WORKER_CONCURRENCY", 3),
		},
		Cache: CacheConfig{
			Dir: getEnv("EMBEDDING_CACHE_DIR", ""),
			TTL: getEnvAsDuration("EMBEDDING_CACHE_TTL", "168h"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Validate reports configuration values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if c.LLM.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.LLM.EmbeddingDimension))
	}
	if c.Search.SimilarityThreshold < -1 || c.Search.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("SIMILARITY_THRESHOLD must be within [-1, 1], got %v", c.Search.SimilarityThreshold))
	}
	switch c.Storage.Backend {
	case StorageLocal:
	case StorageDrive:
		if c.Storage.DriveFolderID == "" {
			errs = append(errs, errors.New("GOOGLE_DRIVE_FOLDER_ID is required when STORAGE_BACKEND=drive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if c.Storage.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("WORKER_CONCURRENCY must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) GetDatabaseDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.5-flash"
}

func defaultEmbeddingModel(provider string) string {
	if provider == ProviderOpenAI {
		return "text-embedding-3-small"
	}
	return "text-embedding-004"
}

func defaultEmbeddingDimension(provider string) int {
	if provider == ProviderOpenAI {
		return 1536
	}
	return 768
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
