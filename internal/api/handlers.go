package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charliek/revive/internal/constants"
	"github.com/charliek/revive/internal/domain"
)

// Watchdog is the set of watchdog operations exposed over HTTP
type Watchdog interface {
	RegisterTarget(ctx context.Context, serverID string) (domain.MonitorTarget, error)
	ClearTarget() bool
	Status() domain.WatchdogStatus
	TriggerRecovery(reason string) (string, error)
}

// Journal is the read side of the event journal
type Journal interface {
	Query(filter domain.EventFilter, limit int) ([]domain.Event, int, error)
	Subscribe(filter domain.EventFilter) (string, <-chan domain.Event, error)
	Unsubscribe(id string)
}

// maxBodySize bounds request bodies; they only ever carry a server id
const maxBodySize = 4096

// Handlers contains all HTTP handlers
type Handlers struct {
	watchdog   Watchdog
	journal    Journal
	configFile string
	startedAt  time.Time
	timeout    time.Duration
	shutdownFn func()
	logger     *slog.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(watchdog Watchdog, journal Journal, configFile string, shutdownFn func(), logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		watchdog:   watchdog,
		journal:    journal,
		configFile: configFile,
		startedAt:  time.Now(),
		timeout:    constants.DefaultRequestTimeout,
		shutdownFn: shutdownFn,
		logger:     logger.With("component", "api"),
	}
}

// GetStatus handles GET /api/v1/status
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := ToStatusResponse(h.watchdog.Status())
	resp.UptimeSeconds = int64(time.Since(h.startedAt).Seconds())
	resp.ConfigFile = h.configFile

	h.writeJSON(w, http.StatusOK, resp)
}

// SetTarget handles PUT /api/v1/target
func (h *Handlers) SetTarget(w http.ResponseWriter, r *http.Request) {
	var req WatchRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.ServerID) == "" {
		msg := "body must be {\"server_id\": \"...\"}"
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: domain.ErrCodeInvalidRequest})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	target, err := h.watchdog.RegisterTarget(ctx, req.ServerID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ToTargetResponse(target))
}

// ClearTarget handles DELETE /api/v1/target
func (h *Handlers) ClearTarget(w http.ResponseWriter, r *http.Request) {
	if !h.watchdog.ClearTarget() {
		h.writeError(w, domain.ErrNoTarget)
		return
	}
	h.writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// TriggerRecovery handles POST /api/v1/recover. The run continues after the
// response; its outcome shows up in status and events.
func (h *Handlers) TriggerRecovery(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: domain.ErrCodeInvalidRequest})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "requested via api"
	}

	id, err := h.watchdog.TriggerRecovery(reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, RecoverResponse{ID: id})
}

// GetEvents handles GET /api/v1/events
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	filter, limit := parseEventParams(r)

	events, total, err := h.journal.Query(filter, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := EventsResponse{
		Events:        make([]EventResponse, len(events)),
		FilteredCount: len(events),
		TotalCount:    total,
	}
	for i, e := range events {
		resp.Events[i] = ToEventResponse(e)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Shutdown handles POST /api/v1/shutdown
func (h *Handlers) Shutdown(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, SuccessResponse{Success: true})

	go func() {
		time.Sleep(100 * time.Millisecond) // Let response complete
		if h.shutdownFn != nil {
			h.shutdownFn()
		}
	}()
}

// parseEventParams extracts the event filter and limit from the query
func parseEventParams(r *http.Request) (domain.EventFilter, int) {
	q := r.URL.Query()
	filter := domain.EventFilter{
		Pattern: q.Get("pattern"),
		IsRegex: q.Get("regex") == "true",
	}

	if types := q.Get("type"); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Types = append(filter.Types, domain.EventType(t))
			}
		}
	}

	// Limit (max MaxEventLimit to prevent DoS)
	limit := constants.DefaultEventLimit
	if s := q.Get("limit"); s != "" {
		if l, err := strconv.Atoi(s); err == nil && l > 0 {
			limit = min(l, constants.MaxEventLimit)
		}
	}

	return filter, limit
}

// decodeBody reads an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encoding JSON response", "error", err)
	}
}

// errorStatus maps a domain error to its HTTP status
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoTarget), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRecoveryInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidServerID), errors.Is(err, domain.ErrInvalidPattern):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransient), errors.Is(err, domain.ErrQuotaExceeded), errors.Is(err, domain.ErrInvalidSpec):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrShutdownInProgress):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Log the actual error but return a sanitized message
		h.logger.Error("internal error", "error", err)
		message = "an internal error occurred"
	}

	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  domain.ErrorCode(err),
	})
}
