package handlers

import (
	"context"
	"net/http"
	"time"

	"sysscope/internal/distributor"
	"sysscope/internal/history"
	"sysscope/internal/middleware"
	"sysscope/internal/models"
	"sysscope/internal/version"

	"github.com/gin-gonic/gin"
)

const readyTimeout = 2 * time.Second

// HistoryRequest is the query string accepted by the history endpoint.
type HistoryRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1"`
}

// Pinger reports whether the persistence layer is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StateReporter exposes the distributor lifecycle.
type StateReporter interface {
	State() distributor.State
}

// MetricsHandlers serves the liveness, readiness and history endpoints.
type MetricsHandlers struct {
	history     *history.Query
	store       Pinger
	distributor StateReporter
	hub         *middleware.StreamHub
}

func NewMetricsHandlers(q *history.Query, store Pinger, d StateReporter, hub *middleware.StreamHub) *MetricsHandlers {
	return &MetricsHandlers{history: q, store: store, distributor: d, hub: hub}
}

// Root is the liveness endpoint.
func (h *MetricsHandlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "SystemScope API is online"})
}

func (h *MetricsHandlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports ready once the store answers and the distributor is running.
func (h *MetricsHandlers) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	body := gin.H{}
	ready := true

	if err := h.store.Ping(ctx); err != nil {
		ready = false
		body["store"] = err.Error()
	} else {
		body["store"] = "ok"
	}

	state := h.distributor.State()
	body["distributor"] = state.String()
	if state != distributor.Running {
		ready = false
	}
	if h.hub != nil {
		body["subscribers"] = h.hub.ClientCount()
	}

	body["ready"] = ready
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, body)
}

func (h *MetricsHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": version.String(),
		"commit":  version.Commit,
		"date":    version.Date,
	})
}

// History returns the recent window of samples, oldest first.
func (h *MetricsHandlers) History(c *gin.Context) {
	limit := 0
	if req, ok := c.Get(middleware.ValidatedQueryKey); ok {
		limit = req.(*HistoryRequest).Limit
	}

	samples, err := h.history.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "History unavailable"})
		return
	}

	entries := make([]models.HistoryEntry, 0, len(samples))
	for _, s := range samples {
		entries = append(entries, s.HistoryEntry())
	}
	c.JSON(http.StatusOK, entries)
}
