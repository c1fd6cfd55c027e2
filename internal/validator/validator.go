// Package validator talks to the external LLM proxy that judges OCR
// candidates. The request is fire-and-forget: the verdict arrives later as
// an HTTP callback carrying the correlation id.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// Verdict is the validator's judgment of one candidate. Confidence is nil
// when the validator did not report one; the pipeline then reports the
// engine's native confidence, or a text-length heuristic when there is none.
type Verdict struct {
	IsValid    bool
	Confidence *float64
	Reason     string
}

// Options configures the validation enqueue client.
type Options struct {
	BaseURL    string
	AppID      string
	AppKey     string
	ModelHint  string
	HTTPClient *http.Client
}

// Client enqueues validation jobs onto the proxy's queue.
type Client struct {
	baseURL    string
	appID      string
	appKey     string
	modelHint  string
	httpClient *http.Client
}

// New creates a validation client.
func New(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		appID:      opts.AppID,
		appKey:     opts.AppKey,
		modelHint:  opts.ModelHint,
		httpClient: client,
	}
}

type enqueueRequest struct {
	CandidateText string `json:"candidate_text"`
	CallbackURL   string `json:"callback_url"`
	CorrelationID string `json:"correlation_id"`
	ModelHint     string `json:"model_hint,omitempty"`
}

// EnqueueValidation submits candidateText for judgment. The proxy will POST
// its verdict to callbackURL with the given correlation id. Any failure here
// is a job-level transient: the caller reclaims its pending state and the
// job is eligible for retry.
func (c *Client) EnqueueValidation(ctx context.Context, candidateText, callbackURL, correlationID string) error {
	body, err := json.Marshal(enqueueRequest{
		CandidateText: candidateText,
		CallbackURL:   callbackURL,
		CorrelationID: correlationID,
		ModelHint:     c.modelHint,
	})
	if err != nil {
		return domain.Transient(fmt.Errorf("marshal validation request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/queue/enqueue", bytes.NewReader(body))
	if err != nil {
		return domain.Transient(fmt.Errorf("build validation request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Jarvis-App-Id", c.appID)
	req.Header.Set("X-Jarvis-App-Key", c.appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Transient(fmt.Errorf("enqueue validation %s: %w", correlationID, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Transient(fmt.Errorf("enqueue validation %s: status %d", correlationID, resp.StatusCode))
	}
	return nil
}
