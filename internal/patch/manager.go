package patch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"cybergrid-controller/internal/metrics"
	"cybergrid-controller/internal/storage"
)

var (
	ErrMissingComponent = errors.New("patch request missing component name")
	ErrMissingVersion   = errors.New("patch request missing version")
)

// Request is an immutable firmware rollout order for one component.
type Request struct {
	ComponentName string
	Version       string
	Payload       []byte
	RequestedBy   string
}

// Checksum is the SHA-256 digest of the payload as lowercase hex.
func (r Request) Checksum() string {
	digest := sha256.Sum256(r.Payload)
	return hex.EncodeToString(digest[:])
}

// StatusStore is the slice of the persistence gateway the manager needs.
type StatusStore interface {
	CreateOrGetComponent(ctx context.Context, name string) (storage.Component, error)
	CreatePatchStatus(ctx context.Context, rec storage.PatchRecord) (string, error)
	UpdatePatchStatus(ctx context.Context, id, status, notes string) error
}

// Notifier fans patch transitions out to interested services. Nil
// disables it.
type Notifier interface {
	Publish(subject string, payload any) error
}

type Config struct {
	FailureRate     float64
	ProcessingDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureRate:     0.1,
		ProcessingDelay: 100 * time.Millisecond,
	}
}

// Manager drives the patch lifecycle: pending at scheduling, then
// in_progress to exactly one terminal state during apply. Terminal
// records never transition again; a retry is a new Request.
type Manager struct {
	store StatusStore
	bus   Notifier
	log   *slog.Logger
	cfg   Config

	// roll draws the apply outcome; tests pin it.
	roll func() float64
}

func NewManager(store StatusStore, bus Notifier, log *slog.Logger, cfg Config) *Manager {
	if cfg.FailureRate < 0 {
		cfg.FailureRate = 0
	}
	if cfg.FailureRate > 1 {
		cfg.FailureRate = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: store, bus: bus, log: log, cfg: cfg, roll: rand.Float64}
}

// Schedule validates the request, resolves its component, and persists
// a pending status whose notes carry the payload checksum. The
// persisted record, with its issued id, is returned.
func (m *Manager) Schedule(ctx context.Context, req Request) (storage.PatchRecord, error) {
	if req.ComponentName == "" {
		return storage.PatchRecord{}, ErrMissingComponent
	}
	if req.Version == "" {
		return storage.PatchRecord{}, ErrMissingVersion
	}
	m.log.Info("scheduling patch", slog.String("component", req.ComponentName), slog.String("version", req.Version))
	component, err := m.store.CreateOrGetComponent(ctx, req.ComponentName)
	if err != nil {
		return storage.PatchRecord{}, fmt.Errorf("resolve component: %w", err)
	}
	rec := storage.PatchRecord{
		ComponentID: component.ID,
		Version:     req.Version,
		Status:      storage.PatchPending,
		RequestedBy: req.RequestedBy,
		Notes:       "Checksum " + req.Checksum(),
	}
	id, err := m.store.CreatePatchStatus(ctx, rec)
	if err != nil {
		return storage.PatchRecord{}, fmt.Errorf("persist patch status: %w", err)
	}
	rec.ID = id
	return rec, nil
}

// Apply drives each status through in_progress to a terminal state.
// Statuses are independent: every one reaches success or failed even
// when another's write is rejected, and all write failures are
// returned joined, since losing a lifecycle record silently would
// blind the operator. The processing delay is a single bounded pause
// per status.
func (m *Manager) Apply(ctx context.Context, statuses []storage.PatchRecord) ([]storage.PatchRecord, error) {
	out := make([]storage.PatchRecord, 0, len(statuses))
	var errs []error
	for _, status := range statuses {
		status.Status = storage.PatchInProgress
		if err := m.store.UpdatePatchStatus(ctx, status.ID, status.Status, status.Notes); err != nil {
			errs = append(errs, fmt.Errorf("patch %s: mark in_progress: %w", status.ID, err))
		}
		if m.cfg.ProcessingDelay > 0 {
			time.Sleep(m.cfg.ProcessingDelay)
		}
		if m.roll() < m.cfg.FailureRate {
			status.Status = storage.PatchFailed
			status.Notes += " Automated validation failed."
		} else {
			status.Status = storage.PatchSuccess
			status.Notes += " Patch applied successfully."
		}
		metrics.PatchOutcomes.WithLabelValues(status.Status).Inc()
		if err := m.store.UpdatePatchStatus(ctx, status.ID, status.Status, status.Notes); err != nil {
			errs = append(errs, fmt.Errorf("patch %s: mark %s: %w", status.ID, status.Status, err))
		}
		if m.bus != nil {
			_ = m.bus.Publish("patch.updated", map[string]any{
				"id":      status.ID,
				"status":  status.Status,
				"version": status.Version,
			})
		}
		out = append(out, status)
	}
	return out, errors.Join(errs...)
}
