package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := FromLookup(lookupFrom(map[string]string{"JWT_SECRET": "s3cret"}))
		if err != nil {
			t.Fatalf("FromLookup() error = %v", err)
		}
		if cfg.Port != defaultPort || cfg.DatabaseURL != defaultDatabaseURL {
			t.Errorf("cfg = %+v", cfg)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
		}
		if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
			t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
		}
		if string(cfg.JWTSecret) != "s3cret" {
			t.Errorf("JWTSecret = %q", cfg.JWTSecret)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		cfg, err := FromLookup(lookupFrom(map[string]string{
			"JWT_SECRET":           "s3cret",
			"PORT":                 "9000",
			"DB_CONNECTION_STRING": "postgres://db/blog",
			"LOG_LEVEL":            "debug",
			"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,",
		}))
		if err != nil {
			t.Fatalf("FromLookup() error = %v", err)
		}
		if cfg.Port != "9000" || cfg.DatabaseURL != "postgres://db/blog" || cfg.LogLevel != slog.LevelDebug {
			t.Errorf("cfg = %+v", cfg)
		}
		want := []string{"https://a.example", "https://b.example"}
		if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
			t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
		}
	})

	t.Run("Missing secret", func(t *testing.T) {
		_, err := FromLookup(lookupFrom(map[string]string{}))
		if !errors.Is(err, ErrMissingSecret) {
			t.Errorf("FromLookup() error = %v, want ErrMissingSecret", err)
		}
	})

	t.Run("Bad log level", func(t *testing.T) {
		_, err := FromLookup(lookupFrom(map[string]string{"JWT_SECRET": "x", "LOG_LEVEL": "loud"}))
		if err == nil {
			t.Error("FromLookup() with bad LOG_LEVEL expected error, got nil")
		}
	})
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("JWT_SECRET=from-file\nPORT=7070\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("PORT", "6060")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(cfg.JWTSecret) != "from-file" {
		t.Errorf("JWTSecret = %q, want value from .env", cfg.JWTSecret)
	}
	if cfg.Port != "6060" {
		t.Errorf("Port = %q, want process env to win", cfg.Port)
	}
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("Load() with missing file error = %v", err)
	}
}
