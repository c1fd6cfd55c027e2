package handlers

import (
	"net/http"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

type queueStatus struct {
	QueueName      string `json:"queue_name"`
	QueueLength    int64  `json:"queue_length"`
	RedisConnected bool   `json:"redis_connected"`
}

// QueueStatus reports the depth of the input queue for operators.
func (a *App) QueueStatus(w http.ResponseWriter, r *http.Request) {
	status := queueStatus{QueueName: domain.InputQueue}

	n, err := a.queues.Len(r.Context(), domain.InputQueue)
	if err != nil {
		a.logger.Warn().Err(err).Msg("queue status probe failed")
		a.json(w, http.StatusOK, status)
		return
	}
	status.QueueLength = n
	status.RedisConnected = true
	a.json(w, http.StatusOK, status)
}
