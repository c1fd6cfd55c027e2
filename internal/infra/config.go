package infra

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	PublicURL string

	MaxTextBytes    int
	MaxAttempts     int
	LanguageDefault string
	ValidationModel string
	MinConfidence   *float64
	EnabledTiers    []domain.Tier
	StateTTL        time.Duration
	TierTimeout     time.Duration
	WorkerSlots     int
	LocalImageRoot  string

	S3Endpoint       string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3ForcePathStyle bool

	LLMProxyURL string
	AppID       string
	AppKey      string

	EasyOCRURL       string
	PaddleOCRURL     string
	VisionHelperPath string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

const defaultEnabledTiers = "tesseract,easyocr,paddleocr,apple_vision,llm_local,llm_cloud"

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("OCR_PORT", "5009"),
		RedisHost:        os.Getenv("REDIS_HOST"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		PublicURL:        os.Getenv("OCR_PUBLIC_URL"),
		MaxTextBytes:     getEnvInt("OCR_MAX_TEXT_BYTES", 51200),
		MaxAttempts:      getEnvInt("OCR_MAX_ATTEMPTS", 3),
		LanguageDefault:  getEnv("OCR_LANGUAGE_DEFAULT", "en"),
		ValidationModel:  getEnv("OCR_VALIDATION_MODEL", "llm_local_light"),
		StateTTL:         time.Second * time.Duration(getEnvInt("OCR_VALIDATION_STATE_TTL_SECONDS", 600)),
		TierTimeout:      time.Second * time.Duration(getEnvInt("OCR_TIER_TIMEOUT_SECONDS", 60)),
		WorkerSlots:      getEnvInt("OCR_WORKER_SLOTS", 4),
		LocalImageRoot:   getEnv("OCR_LOCAL_IMAGE_ROOT", "/data/images"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT_URL"),
		S3Region:         getEnv("S3_REGION", "us-east-2"),
		S3AccessKey:      os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("S3_SECRET_KEY"),
		S3ForcePathStyle: getEnvBool("S3_FORCE_PATH_STYLE", false),
		LLMProxyURL:      os.Getenv("JARVIS_LLM_PROXY_URL"),
		AppID:            os.Getenv("JARVIS_APP_ID"),
		AppKey:           os.Getenv("JARVIS_APP_KEY"),
		EasyOCRURL:       os.Getenv("OCR_EASYOCR_URL"),
		PaddleOCRURL:     os.Getenv("OCR_PADDLEOCR_URL"),
		VisionHelperPath: getEnv("OCR_VISION_HELPER_PATH", "jarvis-vision-helper"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.RedisHost == "" {
		return nil, fmt.Errorf("REDIS_HOST is required")
	}

	if cfg.PublicURL == "" {
		return nil, fmt.Errorf("OCR_PUBLIC_URL is required")
	}

	tiers, err := domain.ParseTierList(getEnv("OCR_ENABLED_TIERS", defaultEnabledTiers))
	if err != nil {
		return nil, fmt.Errorf("OCR_ENABLED_TIERS: %w", err)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("OCR_ENABLED_TIERS must name at least one tier")
	}
	cfg.EnabledTiers = tiers

	if v, ok := os.LookupEnv("OCR_MIN_CONFIDENCE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("OCR_MIN_CONFIDENCE: %w", err)
		}
		if f < 0 || f > 1 {
			return nil, fmt.Errorf("OCR_MIN_CONFIDENCE must be in [0,1], got %v", f)
		}
		cfg.MinConfidence = &f
	}

	return cfg, nil
}

// RedisAddr returns the host:port of the backing store.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
