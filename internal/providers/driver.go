// Package providers defines the uniform driver capability the pipeline
// cascades over, and the boot-time registry that decides which tiers are
// active on this host.
package providers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// Candidate is the raw outcome of one extraction attempt. Confidence, when
// the engine reports one, is normalized to [0,1].
type Candidate struct {
	Text       string
	Confidence *float64
}

// Driver adapts one OCR engine to the pipeline.
type Driver interface {
	Tier() domain.Tier
	// Available reports whether the engine can run on this host. It is
	// probed once at startup, not per request.
	Available(ctx context.Context) bool
	Extract(ctx context.Context, image []byte, language string) (Candidate, error)
}

// Registry holds the drivers that passed their boot probe.
type Registry struct {
	drivers map[domain.Tier]Driver
}

// NewRegistry probes each driver once and keeps the available ones. Dropped
// drivers are logged; the platform gate for host-bound tiers happens here.
func NewRegistry(ctx context.Context, logger zerolog.Logger, drivers ...Driver) *Registry {
	reg := &Registry{drivers: make(map[domain.Tier]Driver, len(drivers))}
	for _, d := range drivers {
		if !d.Available(ctx) {
			logger.Info().Str("tier", string(d.Tier())).Msg("ocr driver unavailable on this host")
			continue
		}
		reg.drivers[d.Tier()] = d
	}
	return reg
}

// Driver returns the driver for a tier, if it survived the boot probe.
func (r *Registry) Driver(tier domain.Tier) (Driver, bool) {
	d, ok := r.drivers[tier]
	return d, ok
}

// Active intersects the configured tier list with the available drivers,
// preserving the configured order.
func (r *Registry) Active(enabled []domain.Tier) []domain.Tier {
	var active []domain.Tier
	for _, tier := range enabled {
		if _, ok := r.drivers[tier]; ok {
			active = append(active, tier)
		}
	}
	return active
}

// ClampConfidence normalizes a native engine confidence into [0,1].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
