package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	ServerPort      string
	StoreBackend    string
	SQLiteDataDir   string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DynamoEndpoint  string
	DynamoTableName string
	AWSRegion       string
	JWTSecret       string
	JWTIssuer       string
	CORSAllowOrigin string
	LogLevel        slog.Level
	DevBypassAuth   bool
}

func LoadConfig() (Config, error) {
	bypass := strings.EqualFold(os.Getenv("DEV_BYPASS_AUTH"), "true")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" && !bypass {
		return Config{}, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	backend := strings.ToLower(envOrDefault("STORE_BACKEND", BackendMemory))
	switch backend {
	case BackendMemory, BackendSQLite, BackendRedis, BackendDynamoDB:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", backend)
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		redisDB = n
	}

	cfg := Config{
		ServerPort:      envOrDefault("SERVER_PORT", "8080"),
		StoreBackend:    backend,
		SQLiteDataDir:   envOrDefault("SQLITE_DATA_DIR", "./data"),
		RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		DynamoEndpoint:  os.Getenv("DYNAMODB_ENDPOINT"),
		DynamoTableName: envOrDefault("DYNAMODB_TABLE_NAME", "local-store-prefs"),
		AWSRegion:       envOrDefault("AWS_REGION", "us-east-1"),
		JWTSecret:       secret,
		JWTIssuer:       os.Getenv("JWT_ISSUER"),
		CORSAllowOrigin: envOrDefault("CORS_ALLOW_ORIGIN", "*"),
		LogLevel:        parseLogLevel(os.Getenv("LOG_LEVEL")),
		DevBypassAuth:   bypass,
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
