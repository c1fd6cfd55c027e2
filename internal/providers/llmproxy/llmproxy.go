// Package llmproxy adapts the jarvis LLM proxy's vision models as OCR
// tiers. The driver exists whenever credentials are configured;
// reachability problems surface per extraction, not at boot.
package llmproxy

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
)

const extractPrompt = "Extract all text visible in this image. " +
	"Return only the extracted text, preserving line breaks. " +
	"If the image contains no text, return an empty response."

// Options configures an LLM proxy OCR driver.
type Options struct {
	BaseURL    string
	AppID      string
	AppKey     string
	HTTPClient *http.Client
}

// Driver extracts text through one proxy vision model.
type Driver struct {
	tier       domain.Tier
	model      string
	baseURL    string
	appID      string
	appKey     string
	httpClient *http.Client
}

// NewLocal builds the llm_local driver over the proxy's on-prem vision model.
func NewLocal(opts Options) *Driver {
	return newDriver(domain.TierLLMLocal, "vision", opts)
}

// NewCloud builds the llm_cloud driver over the proxy's hosted model.
func NewCloud(opts Options) *Driver {
	return newDriver(domain.TierLLMCloud, "cloud", opts)
}

func newDriver(tier domain.Tier, model string, opts Options) *Driver {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Driver{
		tier:       tier,
		model:      model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		appID:      opts.AppID,
		appKey:     opts.AppKey,
		httpClient: client,
	}
}

func (d *Driver) Tier() domain.Tier { return d.tier }

// Available requires proxy credentials; the network is not probed.
func (d *Driver) Available(ctx context.Context) bool {
	return d.baseURL != "" && d.appID != "" && d.appKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content []any  `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the image as a data URI to the proxy's chat-completions
// endpoint and returns the model's transcription.
func (d *Driver) Extract(ctx context.Context, image []byte, language string) (providers.Candidate, error) {
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	payload := chatRequest{
		Model: d.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []any{
				map[string]any{"type": "text", "text": extractPrompt},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURI}},
			},
		}},
		MaxTokens: 4096,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: marshal request: %w", d.tier, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: build request: %w", d.tier, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Jarvis-App-Id", d.appID)
	req.Header.Set("X-Jarvis-App-Key", d.appKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: %w", d.tier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.Candidate{}, fmt.Errorf("%s: proxy returned status %d", d.tier, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return providers.Candidate{}, fmt.Errorf("%s: decode response: %w", d.tier, err)
	}
	if len(out.Choices) == 0 {
		return providers.Candidate{}, fmt.Errorf("%s: proxy returned no choices", d.tier)
	}
	return providers.Candidate{Text: out.Choices[0].Message.Content}, nil
}
