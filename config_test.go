package main

import (
	"log/slog"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("DEV_BYPASS_AUTH", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerPort != "8080" || cfg.StoreBackend != BackendMemory || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DevBypassAuth {
		t.Fatal("expected auth bypass off by default")
	}
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DEV_BYPASS_AUTH", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}

	t.Setenv("DEV_BYPASS_AUTH", "TRUE")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected bypass to waive JWT_SECRET, got %v", err)
	}
	if !cfg.DevBypassAuth {
		t.Fatal("expected DevBypassAuth")
	}
}

func TestLoadConfig_Backends(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "")

	for _, b := range []string{"memory", "SQLite", "redis", "dynamodb"} {
		t.Setenv("STORE_BACKEND", b)
		if _, err := LoadConfig(); err != nil {
			t.Fatalf("backend %s: %v", b, err)
		}
	}

	t.Setenv("STORE_BACKEND", "etcd")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadConfig_RedisDB(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_BACKEND", "redis")

	t.Setenv("REDIS_DB", "3")
	cfg, err := LoadConfig()
	if err != nil || cfg.RedisDB != 3 {
		t.Fatalf("expected RedisDB=3, got %d err=%v", cfg.RedisDB, err)
	}

	t.Setenv("REDIS_DB", "three")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-numeric REDIS_DB")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
