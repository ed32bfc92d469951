package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Version is reported by the API banner.
const Version = "1.0.0"

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the banner and health probe.
type SystemHandler struct {
	db        Pinger
	started   time.Time
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewSystemHandler(db Pinger, now func() time.Time, logger *slog.Logger) *SystemHandler {
	if now == nil {
		now = time.Now
	}
	base := defaultLogger(logger)
	return &SystemHandler{db: db, started: now(), now: now, responder: newResponder(base), logger: base}
}

func (h *SystemHandler) Banner(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bannerResponse{
		Message:   "FlexSpace API is running",
		Version:   Version,
		Timestamp: formatTime(h.now()),
	})
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			handlerLogger(r.Context(), h.logger, "SystemHandler", "Health").WarnContext(r.Context(), "database ping failed", "error", err)
			database = "unavailable"
		}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{
		Status:   "ok",
		Database: database,
		Uptime:   h.now().Sub(h.started).Seconds(),
	})
}

type bannerResponse struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Status   string  `json:"status"`
	Database string  `json:"database"`
	Uptime   float64 `json:"uptime"`
}
