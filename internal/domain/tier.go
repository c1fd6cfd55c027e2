package domain

import (
	"fmt"
	"strings"
)

// Tier identifies one OCR engine in the cascade.
type Tier string

const (
	TierTesseract   Tier = "tesseract"
	TierEasyOCR     Tier = "easyocr"
	TierPaddleOCR   Tier = "paddleocr"
	TierAppleVision Tier = "apple_vision"
	TierLLMLocal    Tier = "llm_local"
	TierLLMCloud    Tier = "llm_cloud"
)

// AllTiers is the closed tier set in the default cascade order.
var AllTiers = []Tier{
	TierTesseract,
	TierEasyOCR,
	TierPaddleOCR,
	TierAppleVision,
	TierLLMLocal,
	TierLLMCloud,
}

var knownTiers = func() map[Tier]struct{} {
	m := make(map[Tier]struct{}, len(AllTiers))
	for _, t := range AllTiers {
		m[t] = struct{}{}
	}
	return m
}()

// ParseTierList parses an ordered comma list of tier names. Order is
// preserved, duplicates are dropped, unknown names are rejected.
func ParseTierList(s string) ([]Tier, error) {
	var tiers []Tier
	seen := make(map[Tier]struct{})
	for _, part := range strings.Split(s, ",") {
		name := Tier(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, ok := knownTiers[name]; !ok {
			return nil, fmt.Errorf("unknown tier %q", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tiers = append(tiers, name)
	}
	return tiers, nil
}
