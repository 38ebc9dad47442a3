package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/LeventeLantos/wa-relay/internal/metrics"
	"github.com/LeventeLantos/wa-relay/internal/service"
)

// VerifyWebhook answers the provider's subscription handshake.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge, err := h.inbound.Verify(q.Get("hub.verify_token"), q.Get("hub.challenge"))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookVerifyRejected).Inc()
		slog.Warn("webhook verification rejected", "remote", r.RemoteAddr)
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "Invalid verification token"})
		return
	}

	metrics.WebhookEvents.WithLabelValues(metrics.WebhookVerifyOK).Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookInvalid).Inc()
		msg := "could not read request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": msg})
		return
	}

	rec, err := h.inbound.Ingest(r.Context(), body)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookInvalid).Inc()
		slog.Info("webhook payload rejected", "problems", verr.Problems)
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "error", "message": verr.Error()})
		return
	case err != nil:
		slog.Error("webhook ingest failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": "failed to store message"})
		return
	}

	metrics.WebhookEvents.WithLabelValues(metrics.WebhookProcessed).Inc()
	slog.Info("webhook message stored", "record_id", rec.ID, "from", rec.Sender)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "message": "Message processed"})
}
