package api

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cybergrid-controller/internal/patch"
	"cybergrid-controller/internal/storage"
)

type dispatchRequest struct {
	Component string `json:"component"`
	Action    string `json:"action"`
	Value     any    `json:"value"`
}

type patchDeployRequest struct {
	ComponentName string `json:"component_name"`
	Version       string `json:"version"`
	Payload       string `json:"payload"`
	RequestedBy   string `json:"requested_by"`
}

type attackRequest struct {
	AttackType string `json:"attack_type"`
	Component  string `json:"component"`
}

func (h *Handler) handleControlDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	component := strings.TrimSpace(req.Component)
	action := strings.TrimSpace(req.Action)
	if component == "" || action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "component and action are required"})
		return
	}
	ctxJSON, _ := json.Marshal(req)
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	id, err := h.Repo.CreateSecurityEvent(ctx, storage.SecurityEvent{
		Severity: storage.SeverityInfo,
		Category: "control_action",
		Details:  action + " -> " + component,
		Context:  ctxJSON,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to record control action"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "event_id": id})
}

func (h *Handler) handlePatchDeploy(w http.ResponseWriter, r *http.Request) {
	var req patchDeployRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	payload, err := patchPayload(req.Payload)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "payload must be base64"})
		return
	}
	requestedBy := strings.TrimSpace(req.RequestedBy)
	if requestedBy == "" {
		requestedBy = "system"
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	rec, err := h.Patcher.Schedule(ctx, patch.Request{
		ComponentName: strings.TrimSpace(req.ComponentName),
		Version:       strings.TrimSpace(req.Version),
		Payload:       payload,
		RequestedBy:   requestedBy,
	})
	if err != nil {
		if errors.Is(err, patch.ErrMissingComponent) || errors.Is(err, patch.ErrMissingVersion) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to schedule patch"})
		return
	}
	applied, err := h.Patcher.Apply(ctx, []storage.PatchRecord{rec})
	if err != nil || len(applied) != 1 {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to apply patch"})
		return
	}
	final := applied[0]
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        final.ID,
		"status":    final.Status,
		"notes":     final.Notes,
		"component": strings.TrimSpace(req.ComponentName),
		"version":   final.Version,
	})
}

// patchPayload decodes the optional base64 firmware blob; an empty
// request gets 32 random bytes so every deploy has a distinct checksum.
func patchPayload(raw string) ([]byte, error) {
	if strings.TrimSpace(raw) == "" {
		buf := make([]byte, 32)
		_, _ = rand.Read(buf)
		return buf, nil
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
}

func (h *Handler) handleAttackSimulation(w http.ResponseWriter, r *http.Request) {
	var req attackRequest
	// An empty body means a generic attack against the default target.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	attackType := strings.TrimSpace(req.AttackType)
	if attackType == "" {
		attackType = "generic"
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()
	alert := h.Engine.SimulateAttack(ctx, attackType, strings.TrimSpace(req.Component))
	_, err := h.Repo.CreateSecurityEvent(ctx, storage.SecurityEvent{
		Severity: storage.SeverityInfo,
		Category: "attack_simulation",
		Details:  fmt.Sprintf("Simulated %s attack on %s", attackType, alert.Component),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to record simulation"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Simulation triggered", "alert": alert})
}

func (h *Handler) handleBaselineReload(w http.ResponseWriter, r *http.Request) {
	h.Engine.Reset()
	if h.Ingest != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
		defer cancel()
		if err := h.Ingest(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "failed to refresh baseline"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Baseline refreshed"})
}
