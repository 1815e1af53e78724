// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	OpenSearch   OpenSearchConfig
	Redis        RedisConfig
	VectorIndex  VectorIndexConfig
	Embedding    EmbeddingConfig
	SearchLimits SearchLimitsConfig
	HybridSearch HybridSearchConfig
	Timeouts     TimeoutsConfig
	Cache        CacheConfig
	LogLevel     string
}

// ServerConfig holds process-level configuration
type ServerConfig struct {
	Environment string
	DataRoot    string // root directory keyframe JPEGs are resolved under
}

// DatabaseConfig holds the Postgres connection configuration backing
// both the vector index and the keyframe metadata store.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// GetDatabaseURL builds a libpq connection string from the config
func (d DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// OpenSearchConfig holds OpenSearch connection configuration used by the
// ASR/OCR full-text channels.
type OpenSearchConfig struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
	ASRIndex           string
	OCRIndex           string
}

// RedisConfig holds Redis connection configuration used for channel
// result caching.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// VectorIndexConfig holds parameters for the ANN keyframe index.
type VectorIndexConfig struct {
	CollectionName string
	Dimensions     int
	Metric         string // currently only "cosine" is supported
}

// EmbeddingConfig names the out-of-process embedding/translation model.
// The core only consumes an Embedder/Translator interface and never calls
// out itself; no code in this repository reads ModelID.
type EmbeddingConfig struct {
	ModelID string
}

// SearchLimitsConfig records request bounds loaded from the environment.
// No code reads these values: the orchestrator and the metadata store
// apply fixed bounds equal to the defaults (request size 500, GetByKeys
// size 200, segment limit 1000), so overriding them has no effect.
type SearchLimitsConfig struct {
	MaxPageSize        int // ceiling on UnifiedRequest.Size
	MaxMetadataPage    int // ceiling on MetadataStore.GetByKeys size
	MaxASRSegmentLimit int // fts_search segments cap
	MaxOCRIDLimit      int
	MaxPerRangeLimit   int
}

// HybridSearchConfig holds the rank-fusion parameters. A request may
// override the three weights (the defaults apply only when all three are
// zero) and the oversample (default applies when it is zero or negative);
// RRFConstantK, ASRFPS and ASRPerRangeLimit are process-wide.
type HybridSearchConfig struct {
	DefaultWeightVector float64
	DefaultWeightASR    float64
	DefaultWeightOCR    float64
	RRFConstantK        int
	DefaultOversample   int
	ASRFPS              float64 // frames-per-second assumed for ASR time->keyframe projection
	ASRPerRangeLimit    int
}

// TimeoutsConfig holds per-downstream-call timeouts (§5 Timeouts).
type TimeoutsConfig struct {
	MetadataStore time.Duration
	VectorIndex   time.Duration
	Embed         time.Duration
	Translate     time.Duration
}

// CacheConfig controls the Redis-backed channel result cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load loads configuration from environment variables, falling back to
// the documented defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	cfg := &Config{
		Server: ServerConfig{
			Environment: getEnv("ENVIRONMENT", "development"),
			DataRoot:    getEnv("DATA_ROOT", "./data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "keyframes"),
			Password: getEnv("DB_PASSWORD", "CHANGEME_SECURE_PASSWORD_HERE"),
			Name:     getEnv("DB_NAME", "keyframes_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenSearch: OpenSearchConfig{
			URL:                getEnv("OPENSEARCH_URL", "http://localhost:9200"),
			Username:           getEnv("OPENSEARCH_USERNAME", ""),
			Password:           getEnv("OPENSEARCH_PASSWORD", ""),
			InsecureSkipVerify: getEnv("OPENSEARCH_INSECURE_SKIP_VERIFY", "true") == "true",
			ASRIndex:           getEnv("OPENSEARCH_ASR_INDEX", "speech_captions"),
			OCRIndex:           getEnv("OPENSEARCH_OCR_INDEX", "keyframes_ocr"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		VectorIndex: VectorIndexConfig{
			CollectionName: getEnv("VECTOR_COLLECTION_NAME", "keyframe"),
			Dimensions:     getEnvInt("VECTOR_DIMENSIONS", 1024),
			Metric:         getEnv("VECTOR_METRIC", "cosine"),
		},
		Embedding: EmbeddingConfig{
			ModelID: getEnv("EMBEDDING_MODEL_ID", ""),
		},
		SearchLimits: SearchLimitsConfig{
			MaxPageSize:        getEnvInt("SEARCH_MAX_PAGE_SIZE", 500),
			MaxMetadataPage:    getEnvInt("SEARCH_MAX_METADATA_PAGE", 200),
			MaxASRSegmentLimit: getEnvInt("SEARCH_MAX_ASR_SEGMENT_LIMIT", 1000),
			MaxOCRIDLimit:      getEnvInt("SEARCH_MAX_OCR_ID_LIMIT", 5000),
			MaxPerRangeLimit:   getEnvInt("SEARCH_MAX_PER_RANGE_LIMIT", 100),
		},
		HybridSearch: HybridSearchConfig{
			DefaultWeightVector: getEnvFloat("HYBRID_WEIGHT_VECTOR", 1.0),
			DefaultWeightASR:    getEnvFloat("HYBRID_WEIGHT_ASR", 1.0),
			DefaultWeightOCR:    getEnvFloat("HYBRID_WEIGHT_OCR", 0.5),
			RRFConstantK:        getEnvInt("HYBRID_RRF_K", 60),
			DefaultOversample:   getEnvInt("HYBRID_DEFAULT_OVERSAMPLE", 10),
			ASRFPS:              getEnvFloat("HYBRID_ASR_FPS", 30.0),
			ASRPerRangeLimit:    getEnvInt("HYBRID_ASR_PER_RANGE_LIMIT", 10),
		},
		Timeouts: TimeoutsConfig{
			MetadataStore: getEnvDuration("TIMEOUT_METADATA_STORE_MS", 5000),
			VectorIndex:   getEnvDuration("TIMEOUT_VECTOR_INDEX_MS", 5000),
			Embed:         getEnvDuration("TIMEOUT_EMBED_MS", 3000),
			Translate:     getEnvDuration("TIMEOUT_TRANSLATE_MS", 3000),
		},
		Cache: CacheConfig{
			Enabled: getEnv("CHANNEL_CACHE_ENABLED", "true") == "true",
			TTL:     getEnvDuration("CHANNEL_CACHE_TTL_MS", 60000),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a fallback default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvInt gets an int environment variable with a fallback default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a millisecond duration environment variable with a fallback default value
func getEnvDuration(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMillis)) * time.Millisecond
}
