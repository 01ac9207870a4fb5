package configs

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort int
	LogDir  string

	DBDriver   string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string

	MongoURI      string
	MongoDatabase string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	CacheTTL      time.Duration

	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	CookieSecure       bool

	ContactEncryptionKey string

	UploadDir     string
	PublicBaseURL string

	CORSOrigins  string
	RateLimitMax int

	AdminEmail    string
	AdminPassword string
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppPort: envInt("APP_PORT", 3004),
		LogDir:  envString("LOG_DIR", "logs"),

		DBDriver:   strings.ToLower(envString("DB_DRIVER", "postgres")),
		DBHost:     envString("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     envString("DB_NAME", "taskflow"),
		DBNameTest: envString("DB_NAME_TEST", "taskflow_test"),

		MongoURI:      envString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envString("MONGO_DATABASE", "taskflow"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     envInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CacheTTL:      envDuration("CACHE_TTL", time.Hour),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  envDuration("ACCESS_TOKEN_EXPIRY", time.Hour),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: envDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour),
		CookieSecure:       envBool("COOKIE_SECURE", true),

		ContactEncryptionKey: os.Getenv("CONTACT_ENCRYPTION_KEY"),

		UploadDir:     envString("UPLOAD_DIR", "uploads"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		CORSOrigins:  envString("CORS_ORIGINS", "http://localhost:5173"),
		RateLimitMax: envInt("RATE_LIMIT_MAX", 100),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

var (
	ErrMissingTokenSecret = errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	ErrSharedTokenSecret  = errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
)

// Validate menolak konfigurasi yang tidak aman dijalankan. Secret token
// sengaja tidak punya default.
func (c Config) Validate() error {
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return ErrMissingTokenSecret
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return ErrSharedTokenSecret
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// envDuration menerima format time.ParseDuration ("90m", "720h").
func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
