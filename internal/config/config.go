package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Face     FaceConfig     `yaml:"face"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
	// URL, when set, takes precedence over the discrete fields.
	URL string `yaml:"url"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	ModelsDir          string        `yaml:"models_dir"`
	ONNXLibPath        string        `yaml:"onnx_lib"`
	DetectionThreshold float64       `yaml:"detection_threshold"`
	WorkerCount        int           `yaml:"worker_count"`
	ExtractTimeout     time.Duration `yaml:"extract_timeout"`
}

// FaceConfig holds the matching parameters. The two thresholds are kept
// separate: enrollment dedup and login recognition carry different costs for
// false positives.
type FaceConfig struct {
	EmbeddingDim         int     `yaml:"embedding_dim"`
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`
	RecognitionThreshold float64 `yaml:"recognition_threshold"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	Issuer           string        `yaml:"issuer"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	PasswordTokenTTL time.Duration `yaml:"password_token_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A missing file is not an error when the environment carries the settings.
func Load(path string) (*Config, error) {
	// .env is optional; production deployments set real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (or FA_JWT_SECRET)")
	}
	if c.Face.DuplicateThreshold <= 0 {
		return fmt.Errorf("face.duplicate_threshold must be positive, got %f", c.Face.DuplicateThreshold)
	}
	if c.Face.RecognitionThreshold <= 0 {
		return fmt.Errorf("face.recognition_threshold must be positive, got %f", c.Face.RecognitionThreshold)
	}
	if c.Face.EmbeddingDim <= 0 {
		return fmt.Errorf("face.embedding_dim must be positive, got %d", c.Face.EmbeddingDim)
	}
	if c.Vision.WorkerCount < 1 {
		return fmt.Errorf("vision.worker_count must be at least 1, got %d", c.Vision.WorkerCount)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "faceauth"
	}
	if cfg.Vision.ModelsDir == "" {
		cfg.Vision.ModelsDir = "models"
	}
	if cfg.Vision.WorkerCount == 0 {
		cfg.Vision.WorkerCount = 2
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.ExtractTimeout == 0 {
		cfg.Vision.ExtractTimeout = 5 * time.Second
	}
	if cfg.Face.EmbeddingDim == 0 {
		cfg.Face.EmbeddingDim = 512
	}
	if cfg.Face.DuplicateThreshold == 0 {
		cfg.Face.DuplicateThreshold = 0.4
	}
	if cfg.Face.RecognitionThreshold == 0 {
		cfg.Face.RecognitionThreshold = 0.4
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "faceauth"
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = time.Hour
	}
	if cfg.Auth.PasswordTokenTTL == 0 {
		cfg.Auth.PasswordTokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FA_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FA_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("FA_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FA_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FA_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FA_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FA_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FA_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FA_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FA_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FA_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FA_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FA_ONNX_LIB"); v != "" {
		cfg.Vision.ONNXLibPath = v
	}
	if v := os.Getenv("FA_VISION_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vision.WorkerCount = n
		}
	}
	if v := os.Getenv("FA_EXTRACT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vision.ExtractTimeout = d
		}
	}
	if v := os.Getenv("FA_DUPLICATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Face.DuplicateThreshold = f
		}
	}
	if v := os.Getenv("FA_RECOGNITION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Face.RecognitionThreshold = f
		}
	}
	if v := os.Getenv("FA_EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Face.EmbeddingDim = n
		}
	}
	if v := os.Getenv("FA_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("FA_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}
	if v := os.Getenv("FA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
