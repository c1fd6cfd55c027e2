package infra

import (
	"testing"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("OCR_PUBLIC_URL", "http://ocr.internal:5009")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxTextBytes != 51200 {
		t.Fatalf("MaxTextBytes = %d, want 51200", cfg.MaxTextBytes)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.StateTTL != 600*time.Second {
		t.Fatalf("StateTTL = %v, want 10m", cfg.StateTTL)
	}
	if cfg.LanguageDefault != "en" {
		t.Fatalf("LanguageDefault = %q, want en", cfg.LanguageDefault)
	}
	if cfg.MinConfidence != nil {
		t.Fatalf("MinConfidence = %v, want unset", *cfg.MinConfidence)
	}
	if len(cfg.EnabledTiers) != len(domain.AllTiers) {
		t.Fatalf("EnabledTiers = %v, want full cascade", cfg.EnabledTiers)
	}
	if cfg.RedisAddr() != "localhost:6379" {
		t.Fatalf("RedisAddr = %q, want localhost:6379", cfg.RedisAddr())
	}
}

func TestLoadConfigRequiresRedisHost(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("OCR_PUBLIC_URL", "http://ocr.internal:5009")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when REDIS_HOST is missing")
	}
}

func TestLoadConfigRequiresPublicURL(t *testing.T) {
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("OCR_PUBLIC_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when OCR_PUBLIC_URL is missing")
	}
}

func TestLoadConfigParsesEnabledTiers(t *testing.T) {
	setRequired(t)
	t.Setenv("OCR_ENABLED_TIERS", "apple_vision,tesseract")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []domain.Tier{domain.TierAppleVision, domain.TierTesseract}
	if len(cfg.EnabledTiers) != 2 || cfg.EnabledTiers[0] != want[0] || cfg.EnabledTiers[1] != want[1] {
		t.Fatalf("EnabledTiers = %v, want %v", cfg.EnabledTiers, want)
	}
}

func TestLoadConfigRejectsUnknownTier(t *testing.T) {
	setRequired(t)
	t.Setenv("OCR_ENABLED_TIERS", "tesseract,sorcery")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown tier name")
	}
}

func TestLoadConfigMinConfidence(t *testing.T) {
	setRequired(t)
	t.Setenv("OCR_MIN_CONFIDENCE", "0.75")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MinConfidence == nil || *cfg.MinConfidence != 0.75 {
		t.Fatalf("MinConfidence = %v, want 0.75", cfg.MinConfidence)
	}

	t.Setenv("OCR_MIN_CONFIDENCE", "1.5")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for out-of-range confidence")
	}
}
