package providers

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

type stubDriver struct {
	tier      domain.Tier
	available bool
}

func (s *stubDriver) Tier() domain.Tier                  { return s.tier }
func (s *stubDriver) Available(ctx context.Context) bool { return s.available }
func (s *stubDriver) Extract(ctx context.Context, image []byte, language string) (Candidate, error) {
	return Candidate{Text: "stub"}, nil
}

func TestRegistryDropsUnavailableDrivers(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	reg := NewRegistry(context.Background(), logger,
		&stubDriver{tier: domain.TierTesseract, available: true},
		&stubDriver{tier: domain.TierAppleVision, available: false},
	)

	if _, ok := reg.Driver(domain.TierTesseract); !ok {
		t.Fatal("tesseract driver should be registered")
	}
	if _, ok := reg.Driver(domain.TierAppleVision); ok {
		t.Fatal("apple_vision driver should have been dropped")
	}
}

func TestActivePreservesConfiguredOrder(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	reg := NewRegistry(context.Background(), logger,
		&stubDriver{tier: domain.TierTesseract, available: true},
		&stubDriver{tier: domain.TierLLMCloud, available: true},
		&stubDriver{tier: domain.TierEasyOCR, available: false},
	)

	active := reg.Active([]domain.Tier{domain.TierLLMCloud, domain.TierEasyOCR, domain.TierTesseract})
	if len(active) != 2 || active[0] != domain.TierLLMCloud || active[1] != domain.TierTesseract {
		t.Fatalf("Active = %v, want [llm_cloud tesseract]", active)
	}
}

func TestClampConfidence(t *testing.T) {
	if got := ClampConfidence(-0.5); got != 0 {
		t.Fatalf("ClampConfidence(-0.5) = %v, want 0", got)
	}
	if got := ClampConfidence(1.7); got != 1 {
		t.Fatalf("ClampConfidence(1.7) = %v, want 1", got)
	}
	if got := ClampConfidence(0.42); got != 0.42 {
		t.Fatalf("ClampConfidence(0.42) = %v, want 0.42", got)
	}
}
