package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/alexberardi/jarvis-ocr-service/internal/infra"
	"github.com/alexberardi/jarvis-ocr-service/internal/validator"
)

// Resumer is the pipeline surface the callback endpoint hands verdicts to.
type Resumer interface {
	Resume(ctx context.Context, correlationID string, verdict validator.Verdict) error
}

// QueueInfo exposes queue introspection for the status endpoint.
type QueueInfo interface {
	Len(ctx context.Context, queueName string) (int64, error)
}

// App bundles the dependencies of the HTTP handlers.
type App struct {
	resumer Resumer
	queues  QueueInfo
	logger  infra.Logger
}

// NewApp creates the handler container.
func NewApp(resumer Resumer, queues QueueInfo, logger infra.Logger) *App {
	return &App{resumer: resumer, queues: queues, logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
