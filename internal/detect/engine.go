package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"cybergrid-controller/internal/metrics"
	"cybergrid-controller/internal/storage"
	"cybergrid-controller/internal/telemetry"
)

const (
	eventCategory     = "ids_alert"
	minBaselinePoints = 5
	staleFactor       = 5
)

// Alert is one anomaly verdict, detected organically or produced by an
// operator-triggered simulation.
type Alert struct {
	Component   string  `json:"component"`
	Reason      string  `json:"reason"`
	Severity    string  `json:"severity"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Description string  `json:"description,omitempty"`
	Mitigation  string  `json:"mitigation,omitempty"`
}

// EventStore is the slice of the persistence gateway the engine needs.
type EventStore interface {
	CreateOrGetComponent(ctx context.Context, name string) (storage.Component, error)
	CreateTelemetry(ctx context.Context, rec storage.TelemetryRecord) (string, error)
	CreateSecurityEvent(ctx context.Context, ev storage.SecurityEvent) (string, error)
}

// Notifier fans alerts out to interested services. Nil disables it.
type Notifier interface {
	Publish(subject string, payload any) error
}

type Config struct {
	DeviationThreshold float64
	CooldownSeconds    int
	BaselineWindow     int
}

func DefaultConfig() Config {
	return Config{
		DeviationThreshold: 4.0,
		CooldownSeconds:    120,
		BaselineWindow:     100,
	}
}

// Engine flags anomalies in grid-edge telemetry using fixed rules plus
// z-score deviation against a rolling per-component baseline. Repeated
// alerts for the same component and reason are suppressed within a
// cooldown window.
type Engine struct {
	store EventStore
	bus   Notifier
	log   *slog.Logger
	cfg   Config

	mu       sync.Mutex
	baseline map[string]map[string][]float64
	recent   map[string]time.Time
	now      func() time.Time
}

func NewEngine(store EventStore, bus Notifier, log *slog.Logger, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.DeviationThreshold <= 0 {
		cfg.DeviationThreshold = def.DeviationThreshold
	}
	if cfg.CooldownSeconds <= 0 {
		cfg.CooldownSeconds = def.CooldownSeconds
	}
	if cfg.BaselineWindow <= 0 {
		cfg.BaselineWindow = def.BaselineWindow
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    store,
		bus:      bus,
		log:      log,
		cfg:      cfg,
		baseline: map[string]map[string][]float64{},
		recent:   map[string]time.Time{},
		now:      time.Now,
	}
}

// UpdateBaseline folds each sample's numeric metrics into the rolling
// per-component history, keeping the most recent window of values.
// Non-numeric fields are skipped.
func (e *Engine) UpdateBaseline(samples []telemetry.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sample := range samples {
		component, ok := e.baseline[sample.Component]
		if !ok {
			component = map[string][]float64{}
			e.baseline[sample.Component] = component
		}
		for key, value := range sample.Payload {
			if value.Kind != telemetry.KindNumber {
				continue
			}
			history := append(component[key], value.Num)
			if len(history) > e.cfg.BaselineWindow {
				history = history[len(history)-e.cfg.BaselineWindow:]
			}
			component[key] = history
		}
	}
}

// Ingest persists the raw snapshots for forensics. Persistence
// failures are logged and swallowed so a storage outage cannot stall
// detection.
func (e *Engine) Ingest(ctx context.Context, samples []telemetry.Sample) {
	for _, sample := range samples {
		metrics.SamplesIngested.Inc()
		component, err := e.store.CreateOrGetComponent(ctx, sample.Component)
		if err != nil {
			metrics.PersistFailures.Inc()
			e.log.Error("component upsert failed", slog.String("component", sample.Component), slog.String("error", err.Error()))
			continue
		}
		payload, err := json.Marshal(sample.Payload)
		if err != nil {
			e.log.Error("payload encode failed", slog.String("component", sample.Component), slog.String("error", err.Error()))
			continue
		}
		if _, err := e.store.CreateTelemetry(ctx, storage.TelemetryRecord{
			ComponentID: component.ID,
			Payload:     payload,
			Severity:    "normal",
		}); err != nil {
			metrics.PersistFailures.Inc()
			e.log.Error("telemetry write failed", slog.String("component", sample.Component), slog.String("error", err.Error()))
		}
	}
}

// Analyze runs rule checks then statistical checks over each sample and
// returns the alerts that survived the cooldown window. Survivors are
// persisted and published; alerts already computed are returned even
// when their durable copy fails.
func (e *Engine) Analyze(ctx context.Context, samples []telemetry.Sample) []Alert {
	alerts := []Alert{}
	for _, sample := range samples {
		candidates := ruleChecks(sample)
		candidates = append(candidates, e.statisticalChecks(sample)...)
		for _, alert := range candidates {
			if !e.shouldEmit(sample.Component + ":" + alert.Reason) {
				metrics.AlertsSuppressed.Inc()
				continue
			}
			e.persistAlert(ctx, alert)
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// statisticalChecks scores the sample's metrics against the component
// baseline. Metrics with fewer than minBaselinePoints values or zero
// variance are skipped.
func (e *Engine) statisticalChecks(sample telemetry.Sample) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	histories := e.baseline[sample.Component]
	if len(histories) == 0 {
		return nil
	}
	names := make([]string, 0, len(histories))
	for name := range histories {
		names = append(names, name)
	}
	sort.Strings(names)
	var alerts []Alert
	for _, name := range names {
		current, ok := sample.Payload.Number(name)
		if !ok {
			continue
		}
		history := histories[name]
		if len(history) < minBaselinePoints {
			continue
		}
		stdev := StdDev(history)
		if stdev == 0 {
			continue
		}
		z := math.Abs((current - Mean(history)) / stdev)
		if z >= e.cfg.DeviationThreshold {
			alerts = append(alerts, Alert{
				Component: sample.Component,
				Reason:    fmt.Sprintf("%s deviation z=%.2f", name, z),
				Severity:  storage.SeverityMedium,
				Metric:    name,
				Value:     current,
			})
		}
	}
	return alerts
}

// shouldEmit applies the cooldown window to an alert key, recording the
// emission time. Stale entries are swept opportunistically; the sweep
// only removes entries and never blocks a new key.
func (e *Engine) shouldEmit(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	cooldown := time.Duration(e.cfg.CooldownSeconds) * time.Second
	if last, ok := e.recent[key]; ok && now.Sub(last) < cooldown {
		return false
	}
	e.recent[key] = now
	for k, ts := range e.recent {
		if now.Sub(ts) > cooldown*staleFactor {
			delete(e.recent, k)
		}
	}
	return true
}

func (e *Engine) persistAlert(ctx context.Context, alert Alert) {
	metrics.AlertsEmitted.WithLabelValues(alert.Severity).Inc()
	payload, err := json.Marshal(alert)
	if err != nil {
		e.log.Error("alert encode failed", slog.String("error", err.Error()))
		return
	}
	_, err = e.store.CreateSecurityEvent(ctx, storage.SecurityEvent{
		Severity: alert.Severity,
		Category: eventCategory,
		Details:  fmt.Sprintf("%s on %s", alert.Reason, alert.Component),
		Context:  payload,
	})
	if err != nil {
		metrics.PersistFailures.Inc()
		e.log.Error("alert write failed", slog.String("component", alert.Component), slog.String("error", err.Error()))
	}
	if e.bus != nil {
		_ = e.bus.Publish("alert.created", alert)
	}
}

// Reset clears the rolling baseline; the next ingestion cycle rebuilds
// it from scratch. Cooldown state is left intact.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseline = map[string]map[string][]float64{}
}

func (e *Engine) BaselineSize(component, metric string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.baseline[component][metric])
}

// BaselineValues returns a copy of the recorded history for one metric.
func (e *Engine) BaselineValues(component, metric string) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := e.baseline[component][metric]
	out := make([]float64, len(history))
	copy(out, history)
	return out
}
