package config

import (
	"os"
	"strconv"
)

// Config represents the application configuration: client-side
// discovery/signing settings and service-side server/database settings.
type Config struct {
	// Server configuration
	ServerPort    string
	ServerTimeout int
	ServerHost    string
	CORSOrigin    string
	Environment   string

	// Database configuration
	DatabaseURL          string
	DBHost               string
	DBPort               string
	DBUser               string
	DBPassword           string
	DBName               string
	DBSSLMode            string
	DBPoolMax            int
	DBMaxIdleConnections int
	DBConnectionLifetime int

	// Redis configuration
	RedisHost string
	RedisPort string

	// Discovery / registry configuration
	DiscoveryURL string

	// Client-side identity configuration
	TrustURL         string
	KeyDir           string
	ActiveIdentifier string

	// Signature configuration
	SignatureExpirySeconds int
	ClockDriftSeconds      int

	// Registry service operator/admin auth (separate from the
	// agent-to-agent Ed25519 signature protocol)
	AdminJWTSecret   string
	AdminUsername    string
	AdminPasswordHash string

	// Logging configuration
	LogLevel  string
	LogFormat string

	// Rate limiting configuration
	RateLimitRequests int
	RateLimitDuration int
}

// Load loads the configuration from environment variables.
func Load() *Config {
	return &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		ServerTimeout: getEnvAsInt("SERVER_TIMEOUT", 30),
		ServerHost:    getEnv("SERVER_HOST", "0.0.0.0"),
		CORSOrigin:    getEnv("CORS_ORIGIN", "*"),
		Environment:   getEnv("NODE_ENV", "development"),

		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", "postgres"),
		DBName:               getEnv("DB_NAME", "fides"),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
		DBPoolMax:            getEnvAsInt("DB_POOL_MAX", 10),
		DBMaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
		DBConnectionLifetime: getEnvAsInt("DB_CONNECTION_LIFETIME", 20),

		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnv("REDIS_PORT", "6379"),

		DiscoveryURL: getEnv("DISCOVERY_URL", "http://localhost:8080"),

		TrustURL:         getEnv("TRUST_URL", "http://localhost:8081"),
		KeyDir:           getEnv("KEY_DIR", "./keys"),
		ActiveIdentifier: getEnv("ACTIVE_IDENTIFIER", ""),

		SignatureExpirySeconds: getEnvAsInt("SIGNATURE_EXPIRY_SECONDS", 300),
		ClockDriftSeconds:      getEnvAsInt("CLOCK_DRIFT_SECONDS", 30),

		AdminJWTSecret:    getEnv("ADMIN_JWT_SECRET", "fides-dev-admin-secret"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "operator"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitDuration: getEnvAsInt("RATE_LIMIT_DURATION", 60),
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer or returns a
// default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetConfig returns the application configuration.
func GetConfig() *Config {
	return Load()
}
