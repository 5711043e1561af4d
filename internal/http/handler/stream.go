package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jaekwang-park/project-board/internal/broadcast"
	"github.com/jaekwang-park/project-board/internal/metrics"
	"github.com/jaekwang-park/project-board/internal/model"
	"github.com/jaekwang-park/project-board/internal/policy"
)

const (
	// StreamUserParam is the chi URL parameter naming the channel owner.
	StreamUserParam = "userId"

	defaultKeepAlive = 25 * time.Second
	retryMillis      = 3000
)

// StreamHandler serves a user's private notification channel as
// server-sent events.
type StreamHandler struct {
	hub       *broadcast.Hub
	metrics   *metrics.Metrics
	logger    *slog.Logger
	keepAlive time.Duration
}

// NewStreamHandler builds a StreamHandler. m may be nil.
func NewStreamHandler(hub *broadcast.Hub, m *metrics.Metrics, logger *slog.Logger, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamHandler{hub: hub, metrics: m, logger: logger, keepAlive: keepAlive}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r)
	channel := model.UserChannel(chi.URLParam(r, StreamUserParam))
	if !policy.CanSubscribe(userID, channel) {
		h.logger.WarnContext(r.Context(), "channel subscription denied", "user_id", userID, "channel", channel)
		WriteError(w, http.StatusForbidden, "FORBIDDEN", "This action is unauthorized.")
		return
	}

	// Subscribe before the preamble so nothing published after the client
	// sees it is missed.
	sub := h.hub.Subscribe(channel)
	defer sub.Close()
	h.trackSubscriber(1)
	defer h.trackSubscriber(-1)

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut long-lived streams.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.ErrorContext(r.Context(), "streaming unsupported", "error", err)
		return
	}

	h.logger.DebugContext(r.Context(), "stream opened", "channel", channel)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case note, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeEvent(w, note); err != nil {
				h.logger.WarnContext(r.Context(), "failed to write event", "error", err, "channel", channel)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) trackSubscriber(delta float64) {
	if h.metrics != nil {
		h.metrics.StreamSubscribers.Add(delta)
	}
}

func writeEvent(w http.ResponseWriter, note broadcast.Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", note.ID, note.Name, data)
	return err
}
