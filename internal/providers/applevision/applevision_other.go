//go:build !darwin

package applevision

import (
	"context"
	"errors"

	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
)

// Available is always false off macOS; the platform gate drops the tier.
func (d *Driver) Available(ctx context.Context) bool { return false }

// Extract never runs off macOS.
func (d *Driver) Extract(ctx context.Context, image []byte, language string) (providers.Candidate, error) {
	return providers.Candidate{}, errors.New("apple_vision is only available on macOS")
}
