package llmproxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

func TestAvailabilityRequiresCredentials(t *testing.T) {
	d := NewLocal(Options{BaseURL: "http://proxy"})
	if d.Available(context.Background()) {
		t.Fatal("driver without app credentials must be unavailable")
	}
	d = NewLocal(Options{BaseURL: "http://proxy", AppID: "id", AppKey: "key"})
	if !d.Available(context.Background()) {
		t.Fatal("configured driver must be available")
	}
}

func TestExtract(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Jarvis-App-Id") == "" || r.Header.Get("X-Jarvis-App-Key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotModel = req.Model
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Recipe: Toast"}},
			},
		})
	}))
	defer srv.Close()

	d := NewCloud(Options{BaseURL: srv.URL, AppID: "id", AppKey: "key", HTTPClient: srv.Client()})
	if d.Tier() != domain.TierLLMCloud {
		t.Fatalf("Tier = %q, want llm_cloud", d.Tier())
	}

	candidate, err := d.Extract(context.Background(), []byte("img"), "en")
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if candidate.Text != "Recipe: Toast" {
		t.Fatalf("Text = %q", candidate.Text)
	}
	if gotModel != "cloud" {
		t.Fatalf("model = %q, want cloud", gotModel)
	}
}

func TestExtractNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	d := NewLocal(Options{BaseURL: srv.URL, AppID: "id", AppKey: "key", HTTPClient: srv.Client()})
	if _, err := d.Extract(context.Background(), []byte("img"), "en"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
