package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Image policy defaults. The face box scale is fixed by the extraction
// prompt; everything else can be overridden through the environment.
const (
	FaceBoxScale = 1000.0

	DefaultImageMaxDimension     = 1024
	DefaultImageJPEGQuality      = 80
	DefaultPortraitJPEGQuality   = 90
	DefaultPDFRenderScale        = 2.0
	DefaultPortraitTopPadding    = 0.8
	DefaultPortraitBottomPadding = 0.5
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Qdrant   QdrantConfig
	Gemini   GeminiConfig
	Storage  StorageConfig
	Image    ImageConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize uint64
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type StorageConfig struct {
	UploadPath  string
	MaxFileSize int64
}

// ImageConfig holds the resize and portrait crop policy.
type ImageConfig struct {
	MaxDimension          int
	JPEGQuality           int
	PortraitJPEGQuality   int
	PDFRenderScale        float64
	PortraitTopPadding    float64
	PortraitBottomPadding float64
}

type WorkerConfig struct {
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
}

// DefaultImageConfig returns the built-in image policy.
func DefaultImageConfig() ImageConfig {
	return ImageConfig{
		MaxDimension:          DefaultImageMaxDimension,
		JPEGQuality:           DefaultImageJPEGQuality,
		PortraitJPEGQuality:   DefaultPortraitJPEGQuality,
		PDFRenderScale:        DefaultPDFRenderScale,
		PortraitTopPadding:    DefaultPortraitTopPadding,
		PortraitBottomPadding: DefaultPortraitBottomPadding,
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3000"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "talent_intake"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),

			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "30m"),
		},
		Qdrant: QdrantConfig{
			URL:        getEnv("QDRANT_URL", "http://localhost:6333"),
			APIKey:     getEnv("QDRANT_API_KEY", ""),
			Collection: getEnv("QDRANT_COLLECTION", "candidates"),
			VectorSize: uint64(getEnvAsInt("QDRANT_VECTOR_SIZE", 768)),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Storage: StorageConfig{
			UploadPath:  getEnv("UPLOAD_PATH", "./uploads"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
		},
		Image: ImageConfig{
			MaxDimension:          getEnvAsInt("IMAGE_MAX_DIMENSION", DefaultImageMaxDimension),
			JPEGQuality:           getEnvAsInt("IMAGE_JPEG_QUALITY", DefaultImageJPEGQuality),
			PortraitJPEGQuality:   getEnvAsInt("PORTRAIT_JPEG_QUALITY", DefaultPortraitJPEGQuality),
			PDFRenderScale:        getEnvAsFloat("PDF_RENDER_SCALE", DefaultPDFRenderScale),
			PortraitTopPadding:    getEnvAsFloat("PORTRAIT_TOP_PADDING", DefaultPortraitTopPadding),
			PortraitBottomPadding: getEnvAsFloat("PORTRAIT_BOTTOM_PADDING", DefaultPortraitBottomPadding),
		},
		Worker: WorkerConfig{
			RetryMaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
		},
	}
}

func (c *Config) GetDatabaseDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		sslMode,
	)
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

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
