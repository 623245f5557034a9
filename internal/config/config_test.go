package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: s3cret\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Face.DuplicateThreshold != 0.4 {
		t.Errorf("expected duplicate threshold 0.4, got %f", cfg.Face.DuplicateThreshold)
	}
	if cfg.Face.RecognitionThreshold != 0.4 {
		t.Errorf("expected recognition threshold 0.4, got %f", cfg.Face.RecognitionThreshold)
	}
	if cfg.Face.EmbeddingDim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Face.EmbeddingDim)
	}
	if cfg.Vision.ExtractTimeout != 5*time.Second {
		t.Errorf("expected extract timeout 5s, got %s", cfg.Vision.ExtractTimeout)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("expected token ttl 1h, got %s", cfg.Auth.TokenTTL)
	}
}

func TestLoad_ThresholdsIndependent(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: s3cret
face:
  duplicate_threshold: 0.45
  recognition_threshold: 0.35
  embedding_dim: 128
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Face.DuplicateThreshold != 0.45 {
		t.Errorf("expected duplicate threshold 0.45, got %f", cfg.Face.DuplicateThreshold)
	}
	if cfg.Face.RecognitionThreshold != 0.35 {
		t.Errorf("expected recognition threshold 0.35, got %f", cfg.Face.RecognitionThreshold)
	}
	if cfg.Face.EmbeddingDim != 128 {
		t.Errorf("expected embedding dim 128, got %d", cfg.Face.EmbeddingDim)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\n")
	t.Setenv("FA_JWT_SECRET", "from-env")
	t.Setenv("FA_RECOGNITION_THRESHOLD", "0.3")
	t.Setenv("FA_EXTRACT_TIMEOUT", "750ms")
	t.Setenv("FA_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("expected env secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Face.RecognitionThreshold != 0.3 {
		t.Errorf("expected 0.3, got %f", cfg.Face.RecognitionThreshold)
	}
	if cfg.Face.DuplicateThreshold != 0.4 {
		t.Errorf("duplicate threshold should keep its default, got %f", cfg.Face.DuplicateThreshold)
	}
	if cfg.Vision.ExtractTimeout != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %s", cfg.Vision.ExtractTimeout)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("FA_JWT_SECRET", "env-only")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-only" {
		t.Errorf("expected env secret, got %q", cfg.Auth.JWTSecret)
	}
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("FA_JWT_SECRET", "")
	path := writeConfig(t, "server:\n  port: 8081\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error when jwt secret is missing")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "faces", User: "u", Password: "p"}
	want := "postgres://u:p@db:5432/faces?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	d.URL = "postgres://override"
	if got := d.DSN(); got != "postgres://override" {
		t.Errorf("DSN() with URL = %q", got)
	}
}
