// Package applevision adapts the macOS Vision framework through the bundled
// jarvis-vision-helper binary. The tier only exists on darwin hosts; on any
// other GOOS the driver reports unavailable and the tier policy drops it.
package applevision

import (
	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// Driver shells out to the vision helper for recognition.
type Driver struct {
	helperPath string
}

// New constructs the apple_vision driver around the helper binary.
func New(helperPath string) *Driver {
	return &Driver{helperPath: helperPath}
}

func (d *Driver) Tier() domain.Tier { return domain.TierAppleVision }
