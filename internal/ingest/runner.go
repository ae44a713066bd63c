package ingest

import (
	"context"
	"log/slog"

	"cybergrid-controller/internal/detect"
	"cybergrid-controller/internal/telemetry"
)

// Runner wires the fleet simulator to the detection engine as a
// scheduler job: one run is one full ingest cycle.
type Runner struct {
	Sim    *telemetry.Simulator
	Engine *detect.Engine
	Log    *slog.Logger
}

// Run takes a fleet snapshot, folds it into the rolling baseline,
// persists the readings and analyzes them. Alerts are logged here;
// persistence and fan-out already happened inside the engine.
func (r *Runner) Run(ctx context.Context) error {
	if r.Sim == nil || r.Sim.Empty() {
		r.logger().Warn("no fleet nodes configured, skipping ingest cycle")
		return nil
	}

	samples := r.Sim.Snapshot()
	r.Engine.UpdateBaseline(samples)
	r.Engine.Ingest(ctx, samples)

	alerts := r.Engine.Analyze(ctx, samples)
	for _, alert := range alerts {
		r.logger().Warn("alert raised",
			slog.String("component", alert.Component),
			slog.String("reason", alert.Reason),
			slog.String("severity", alert.Severity))
	}
	r.logger().Debug("ingest cycle complete",
		slog.Int("samples", len(samples)),
		slog.Int("alerts", len(alerts)))
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
