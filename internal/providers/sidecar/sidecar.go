// Package sidecar adapts OCR engines that run as HTTP sidecars. EasyOCR and
// PaddleOCR are Python-native; deployments run them as small local services
// and point this driver at them.
package sidecar

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
)

// Driver talks to one OCR sidecar. A driver with an empty base URL reports
// unavailable, which drops its tier from the active list.
type Driver struct {
	tier       domain.Tier
	baseURL    string
	httpClient *http.Client
}

// Option configures a Driver.
type Option func(*Driver)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) { d.httpClient = c }
}

// NewEasyOCR builds the easyocr sidecar driver.
func NewEasyOCR(baseURL string, opts ...Option) *Driver {
	return newDriver(domain.TierEasyOCR, baseURL, opts...)
}

// NewPaddleOCR builds the paddleocr sidecar driver.
func NewPaddleOCR(baseURL string, opts ...Option) *Driver {
	return newDriver(domain.TierPaddleOCR, baseURL, opts...)
}

func newDriver(tier domain.Tier, baseURL string, opts ...Option) *Driver {
	d := &Driver{
		tier:       tier,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) Tier() domain.Tier { return d.tier }

// Available probes the sidecar's health endpoint.
func (d *Driver) Available(ctx context.Context) bool {
	if d.baseURL == "" {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, d.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type extractRequest struct {
	Image    string `json:"image"`
	Language string `json:"language,omitempty"`
}

type extractResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

// Extract posts the image to the sidecar and returns its candidate.
func (d *Driver) Extract(ctx context.Context, image []byte, language string) (providers.Candidate, error) {
	body, err := json.Marshal(extractRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Language: language,
	})
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: marshal request: %w", d.tier, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: build request: %w", d.tier, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: %w", d.tier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.Candidate{}, fmt.Errorf("%s: sidecar returned status %d", d.tier, resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: decode response: %w", d.tier, err)
	}

	candidate := providers.Candidate{Text: out.Text}
	if out.Confidence != nil {
		c := providers.ClampConfidence(*out.Confidence)
		candidate.Confidence = &c
	}
	return candidate, nil
}
