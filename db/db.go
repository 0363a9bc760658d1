// Package db wires the Postgres and Redis connections shared by both
// backend services and runs the protocol's table migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

var (
	DB            *sql.DB
	Redis         *redis.Client
	dbInitMu      sync.Mutex
	dbInitialized bool
)

// InitDB opens the Postgres connection pool, connects to Redis, and
// ensures the protocol's tables exist.
func InitDB() error {
	dbInitMu.Lock()
	defer dbInitMu.Unlock()

	if dbInitialized && DB != nil {
		return nil
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "fides")
	sslmode := getEnv("DB_SSLMODE", "disable")
	maxConn := getEnvAsInt("DB_POOL_MAX", 10)
	maxIdleConn := getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5)
	connLifetime := getEnvAsInt("DB_CONNECTION_LIFETIME", 20)

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s application_name=fides connect_timeout=10",
		host, port, user, password, dbname, sslmode)

	var err error
	DB, err = sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(maxConn)
	DB.SetMaxIdleConns(maxIdleConn)
	DB.SetConnMaxLifetime(time.Duration(connLifetime) * time.Second)

	if err = DB.Ping(); err != nil {
		DB = nil
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fmt.Printf("Successfully connected to database %s at %s:%s\n", dbname, host, port)

	if err = createTables(); err != nil {
		DB = nil
		return fmt.Errorf("failed to create tables: %w", err)
	}

	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")
	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort)
	Redis = redis.NewClient(&redis.Options{Addr: redisAddr, DB: 0})
	if err := Redis.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	fmt.Printf("Successfully connected to Redis at %s\n", redisAddr)

	dbInitialized = true
	return nil
}

// createTables ensures the protocol's three persisted tables exist:
// identities (C8), trust_edges and reputation_scores (C9).
func createTables() error {
	tableQueries := map[string]string{
		"identities": `
			CREATE TABLE IF NOT EXISTS identities (
				did VARCHAR(128) PRIMARY KEY,
				public_key VARCHAR(64) NOT NULL,
				domain VARCHAR(255),
				metadata JSONB,
				first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
		`,
		"trust_edges": `
			CREATE TABLE IF NOT EXISTS trust_edges (
				id BIGSERIAL PRIMARY KEY,
				source VARCHAR(128) NOT NULL,
				target VARCHAR(128) NOT NULL,
				trust_level INTEGER NOT NULL,
				attestation TEXT NOT NULL,
				signature VARCHAR(128) NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				expires_at TIMESTAMP,
				revoked_at TIMESTAMP,
				UNIQUE (source, target)
			);
		`,
		"reputation_scores": `
			CREATE TABLE IF NOT EXISTS reputation_scores (
				did VARCHAR(128) PRIMARY KEY,
				score DOUBLE PRECISION NOT NULL DEFAULT 0,
				direct_trusters INTEGER NOT NULL DEFAULT 0,
				transitive_trusters INTEGER NOT NULL DEFAULT 0,
				last_computed TIMESTAMP NOT NULL DEFAULT to_timestamp(0)
			);
		`,
	}

	for name, query := range tableQueries {
		if _, err := DB.Exec(query); err != nil {
			return fmt.Errorf("creating table %s: %w", name, err)
		}
	}
	return nil
}

// Close drains and closes the Postgres pool and the Redis client. Safe
// to call even if InitDB was never called.
func Close() {
	dbInitMu.Lock()
	defer dbInitMu.Unlock()

	if DB != nil {
		if err := DB.Close(); err != nil {
			fmt.Printf("Error closing database connection: %v\n", err)
		} else {
			fmt.Println("Database connection closed successfully")
		}
		DB = nil
		dbInitialized = false
	}

	if Redis != nil {
		if err := Redis.Close(); err != nil {
			fmt.Printf("Error closing redis connection: %v\n", err)
		}
		Redis = nil
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
