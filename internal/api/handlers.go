package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cybergrid-controller/internal/detect"
	"cybergrid-controller/internal/patch"
	"cybergrid-controller/internal/scheduler"
	"cybergrid-controller/internal/storage"
)

type Handler struct {
	Repo    *storage.Repository
	Engine  *detect.Engine
	Patcher *patch.Manager
	Sched   *scheduler.Scheduler
	Ingest  func(ctx context.Context) error
	Timeout time.Duration
}

type telemetryResponse struct {
	ID        string          `json:"id"`
	Component string          `json:"component"`
	Payload   json.RawMessage `json:"payload"`
	Severity  string          `json:"severity"`
	CreatedAt time.Time       `json:"created_at"`
}

type componentResponse struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	FirmwareVersion string  `json:"firmware_version"`
	IPAddress       string  `json:"ip_address"`
	Criticality     string  `json:"criticality"`
	LatestPatch     *string `json:"latest_patch"`
	PatchStatus     *string `json:"patch_status"`
}

type eventResponse struct {
	ID        string          `json:"id"`
	Severity  string          `json:"severity"`
	Category  string          `json:"category"`
	Details   string          `json:"details"`
	Context   json.RawMessage `json:"context,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type summaryResponse struct {
	Components       int64           `json:"components"`
	TelemetryRecords int64           `json:"telemetry_records"`
	Alerts           int64           `json:"alerts"`
	RecentAlerts     []eventResponse `json:"recent_alerts"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Get("/telemetry", h.handleTelemetryList)
	r.Get("/components", h.handleComponentsList)
	r.Get("/alerts", h.handleAlertsList)
	r.Get("/activity/summary", h.handleActivitySummary)
	r.Get("/jobs", h.handleJobsList)
	r.Post("/control/dispatch", h.handleControlDispatch)
	r.Post("/patch/deploy", h.handlePatchDeploy)
	r.Post("/simulations/attack", h.handleAttackSimulation)
	r.Post("/baseline/reload", h.handleBaselineReload)
	r.Handle("/metrics", promhttp.Handler())
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) handleTelemetryList(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	records, err := h.Repo.ListTelemetry(ctx, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to list telemetry"})
		return
	}
	items := make([]telemetryResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, telemetryResponse{
			ID:        rec.ID,
			Component: rec.ComponentName,
			Payload:   json.RawMessage(rec.Payload),
			Severity:  rec.Severity,
			CreatedAt: rec.CreatedAt,
		})
	}
	// Stored newest-first; the feed reads oldest-first.
	slices.Reverse(items)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleComponentsList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	components, err := h.Repo.ListComponents(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to list components"})
		return
	}
	items := make([]componentResponse, 0, len(components))
	for _, c := range components {
		items = append(items, componentResponse{
			Name:            c.Name,
			Type:            c.ComponentType,
			FirmwareVersion: c.FirmwareVersion,
			IPAddress:       c.IPAddress,
			Criticality:     c.Criticality,
			LatestPatch:     c.LatestPatch,
			PatchStatus:     c.PatchStatus,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleAlertsList(w http.ResponseWriter, r *http.Request) {
	filter := storage.EventFilter{
		Severity: r.URL.Query().Get("severity"),
		Category: r.URL.Query().Get("category"),
		Limit:    parseLimit(r, 0),
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	events, err := h.Repo.ListSecurityEvents(ctx, filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to list alerts"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toEventResponses(events)})
}

func (h *Handler) handleActivitySummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	summary, err := h.Repo.ActivitySummary(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to build summary"})
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Components:       summary.Components,
		TelemetryRecords: summary.TelemetryRecords,
		Alerts:           summary.Alerts,
		RecentAlerts:     toEventResponses(summary.RecentAlerts),
	})
}

func (h *Handler) handleJobsList(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.Sched != nil {
		jobs = h.Sched.Jobs()
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": jobs})
}

func toEventResponses(events []storage.SecurityEvent) []eventResponse {
	items := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		items = append(items, eventResponse{
			ID:        ev.ID,
			Severity:  ev.Severity,
			Category:  ev.Category,
			Details:   ev.Details,
			Context:   json.RawMessage(ev.Context),
			Actor:     ev.Actor,
			CreatedAt: ev.CreatedAt,
		})
	}
	return items
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
