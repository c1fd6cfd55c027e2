package domain

import "testing"

func TestParseTierListPreservesOrder(t *testing.T) {
	tiers, err := ParseTierList("apple_vision, tesseract ,llm_cloud")
	if err != nil {
		t.Fatalf("ParseTierList returned error: %v", err)
	}
	want := []Tier{TierAppleVision, TierTesseract, TierLLMCloud}
	if len(tiers) != len(want) {
		t.Fatalf("tiers = %v, want %v", tiers, want)
	}
	for i := range want {
		if tiers[i] != want[i] {
			t.Fatalf("tiers[%d] = %q, want %q", i, tiers[i], want[i])
		}
	}
}

func TestParseTierListRejectsUnknown(t *testing.T) {
	if _, err := ParseTierList("tesseract,not_a_tier"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestParseTierListDropsDuplicates(t *testing.T) {
	tiers, err := ParseTierList("tesseract,tesseract,easyocr")
	if err != nil {
		t.Fatalf("ParseTierList returned error: %v", err)
	}
	if len(tiers) != 2 || tiers[0] != TierTesseract || tiers[1] != TierEasyOCR {
		t.Fatalf("tiers = %v, want [tesseract easyocr]", tiers)
	}
}

func TestLanguageFallback(t *testing.T) {
	e := &JobEnvelope{}
	if got := e.Language("en"); got != "en" {
		t.Fatalf("Language() = %q, want fallback en", got)
	}
	e.Payload.Options = &RequestOptions{Language: "de"}
	if got := e.Language("en"); got != "de" {
		t.Fatalf("Language() = %q, want de", got)
	}
}
