package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"cybergrid-controller/internal/detect"
	"cybergrid-controller/internal/storage"
	"cybergrid-controller/internal/telemetry"
)

type stubStore struct {
	telemetry []storage.TelemetryRecord
	events    []storage.SecurityEvent
}

func (s *stubStore) CreateOrGetComponent(_ context.Context, name string) (storage.Component, error) {
	return storage.Component{ID: name + "-id", Name: name}, nil
}

func (s *stubStore) CreateTelemetry(_ context.Context, rec storage.TelemetryRecord) (string, error) {
	s.telemetry = append(s.telemetry, rec)
	return "telemetry-1", nil
}

func (s *stubStore) CreateSecurityEvent(_ context.Context, ev storage.SecurityEvent) (string, error) {
	s.events = append(s.events, ev)
	return "event-1", nil
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPersistsFleetSnapshot(t *testing.T) {
	store := &stubStore{}
	eng := detect.NewEngine(store, nil, discardLog(), detect.Config{})
	sim := telemetry.NewSimulator([]telemetry.Node{
		{Name: "solar-inverter-1", Type: "inverter", Telemetry: telemetry.Payload{
			"voltage": telemetry.Number(230),
		}},
		{Name: "battery-bank-1", Type: "storage", Telemetry: telemetry.Payload{
			"soc": telemetry.Number(76),
		}},
	}, nil)

	r := &Runner{Sim: sim, Engine: eng, Log: discardLog()}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	if len(store.telemetry) != 2 {
		t.Fatalf("expected one record per node, got %d", len(store.telemetry))
	}
	if eng.BaselineSize("battery-bank-1", "soc") != 1 {
		t.Fatalf("expected baseline to grow, got %d points", eng.BaselineSize("battery-bank-1", "soc"))
	}
}

func TestRunSkipsEmptyFleet(t *testing.T) {
	store := &stubStore{}
	eng := detect.NewEngine(store, nil, discardLog(), detect.Config{})

	r := &Runner{Sim: telemetry.NewSimulator(nil, nil), Engine: eng, Log: discardLog()}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("expected empty fleet to be a no-op, got %v", err)
	}
	if len(store.telemetry) != 0 {
		t.Fatalf("expected no records, got %d", len(store.telemetry))
	}

	r = &Runner{Sim: nil, Engine: eng, Log: discardLog()}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("expected nil simulator to be a no-op, got %v", err)
	}
}

func TestRunRaisesAlertsFromSnapshot(t *testing.T) {
	store := &stubStore{}
	eng := detect.NewEngine(store, nil, discardLog(), detect.Config{})
	// failed_logins jitters by at most +3, so a base of 10 is always
	// past the rule threshold.
	sim := telemetry.NewSimulator([]telemetry.Node{
		{Name: "gateway-1", Type: "gateway", Telemetry: telemetry.Payload{
			"failed_logins": telemetry.Number(10),
		}},
	}, nil)

	r := &Runner{Sim: sim, Engine: eng, Log: discardLog()}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("expected run to succeed, got %v", err)
	}

	found := false
	for _, ev := range store.events {
		if ev.Category == "ids_alert" && ev.Details == "Excessive failed logins on gateway-1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a persisted login alert, got %+v", store.events)
	}
}
