// Package tesseract adapts the local Tesseract engine via gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
)

// tessdata uses 3-letter codes; map the common hints, pass the rest through.
var langCodes = map[string]string{
	"en": "eng",
	"fr": "fra",
	"de": "deu",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"nl": "nld",
}

// Driver runs Tesseract in-process. The engine is not reentrant, so a mutex
// serializes extractions across concurrent jobs.
type Driver struct {
	mu sync.Mutex
}

// New constructs the tesseract driver.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Tier() domain.Tier { return domain.TierTesseract }

// Available probes the installed engine once at boot.
func (d *Driver) Available(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version() != ""
}

// Extract runs OCR over the image bytes with the mapped language hint.
func (d *Driver) Extract(ctx context.Context, image []byte, language string) (providers.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return providers.Candidate{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(image); err != nil {
		return providers.Candidate{}, fmt.Errorf("tesseract set image: %w", err)
	}
	if err := client.SetLanguage(tessLanguage(language)); err != nil {
		return providers.Candidate{}, fmt.Errorf("tesseract set language: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("tesseract extract: %w", err)
	}
	return providers.Candidate{Text: text}, nil
}

func tessLanguage(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return "eng"
	}
	if code, ok := langCodes[hint]; ok {
		return code
	}
	return hint
}
