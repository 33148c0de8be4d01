package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	JWTSecret   string `yaml:"jwtSecret"`
	SessionTTL  string `yaml:"sessionTTL"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`

	AdminEmail        string `yaml:"adminEmail"`
	AdminPasswordHash string `yaml:"adminPasswordHash"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	AIProvider       string `yaml:"aiProvider"`
	AIBaseURL        string `yaml:"aiBaseURL"`
	AIAPIKey         string `yaml:"aiApiKey"`
	AIModel          string `yaml:"aiModel"`
	AIReferer        string `yaml:"aiReferer"`
	AITitle          string `yaml:"aiTitle"`
	AITimeoutSeconds int    `yaml:"aiTimeoutSeconds"`

	RenderSummaryPDF bool  `yaml:"renderSummaryPdf"`
	MaxUploadBytes   int64 `yaml:"maxUploadBytes"`
	PromptMaxChars   int   `yaml:"promptMaxChars"`
	MinTextChars     int   `yaml:"minTextChars"`
	PDFTextMinRunes  int   `yaml:"pdfTextMinRunes"`

	TesseractPath string `yaml:"tesseractPath"`
	PdftoppmPath  string `yaml:"pdftoppmPath"`
	PdftotextPath string `yaml:"pdftotextPath"`
	OCRLanguage   string `yaml:"ocrLanguage"`

	RabbitURL      string `yaml:"rabbitUrl"`
	EventsExchange string `yaml:"eventsExchange"`

	RegisterRateLimitPerMinute int `yaml:"registerRateLimitPerMinute"`
	LoginRateLimitPerMinute    int `yaml:"loginRateLimitPerMinute"`
	AdminRateLimitPerMinute    int `yaml:"adminRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		cfg.AdminEmail = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		cfg.AdminPasswordHash = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.AIProvider = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AIAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" && cfg.AIAPIKey == "" {
		cfg.AIAPIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AIModel = v
	}
	if v := os.Getenv("RABBIT_URL"); v != "" {
		cfg.RabbitURL = v
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("REGISTER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for rate limiting")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("config: jwtSecret is required (set JWT_SECRET)")
	}
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		return errors.New("config: minioEndpoint is required")
	}
	if strings.TrimSpace(cfg.MinioBucket) == "" {
		return errors.New("config: minioBucket is required")
	}
	if cfg.RegisterRateLimitPerMinute < 0 || cfg.LoginRateLimitPerMinute < 0 || cfg.AdminRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}

// AITimeout returns the summarization call timeout.
func (c FileConfig) AITimeout() time.Duration {
	if c.AITimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.AITimeoutSeconds) * time.Second
}
