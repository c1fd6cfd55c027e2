package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

func TestEnqueueValidation(t *testing.T) {
	var got enqueueRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/queue/enqueue" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Jarvis-App-Id") != "app" || r.Header.Get("X-Jarvis-App-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(Options{
		BaseURL:    srv.URL,
		AppID:      "app",
		AppKey:     "key",
		ModelHint:  "llm_local_light",
		HTTPClient: srv.Client(),
	})

	err := c.EnqueueValidation(context.Background(), "Hello", "http://ocr:5009/internal/validation/callback", "val-1")
	if err != nil {
		t.Fatalf("EnqueueValidation returned error: %v", err)
	}
	if got.CandidateText != "Hello" || got.CorrelationID != "val-1" {
		t.Fatalf("request = %+v", got)
	}
	if got.ModelHint != "llm_local_light" {
		t.Fatalf("model_hint = %q", got.ModelHint)
	}
	if got.CallbackURL != "http://ocr:5009/internal/validation/callback" {
		t.Fatalf("callback_url = %q", got.CallbackURL)
	}
}

func TestEnqueueValidationFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	err := c.EnqueueValidation(context.Background(), "x", "http://cb", "val-2")
	if !domain.IsTransient(err) {
		t.Fatalf("err = %v, want transient", err)
	}
}
