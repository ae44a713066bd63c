package detect

import (
	"math"

	"cybergrid-controller/internal/storage"
	"cybergrid-controller/internal/telemetry"
)

// Fixed safety envelope for grid-edge devices on a nominal 230V feed
// and a 60Hz grid.
const (
	voltageMin      = 200.0
	voltageMax      = 260.0
	nominalHz       = 60.0
	maxHzDrift      = 1.5
	maxFailedLogins = 5.0
)

// ruleChecks evaluates the fixed thresholds that apply regardless of
// baseline history. Bounds are exclusive: a reading exactly on a limit
// does not alert.
func ruleChecks(sample telemetry.Sample) []Alert {
	var alerts []Alert
	if status, ok := sample.Payload.Text("status"); ok && status == "offline" {
		alerts = append(alerts, Alert{
			Component: sample.Component,
			Reason:    "Device offline",
			Severity:  storage.SeverityHigh,
			Metric:    "status",
			Value:     0,
		})
	}
	if voltage, ok := sample.Payload.Number("voltage"); ok && (voltage < voltageMin || voltage > voltageMax) {
		alerts = append(alerts, Alert{
			Component: sample.Component,
			Reason:    "Voltage out of bounds",
			Severity:  storage.SeverityMedium,
			Metric:    "voltage",
			Value:     voltage,
		})
	}
	if frequency, ok := sample.Payload.Number("frequency"); ok && math.Abs(frequency-nominalHz) > maxHzDrift {
		alerts = append(alerts, Alert{
			Component: sample.Component,
			Reason:    "Frequency deviation",
			Severity:  storage.SeverityMedium,
			Metric:    "frequency",
			Value:     frequency,
		})
	}
	if failedLogins, ok := sample.Payload.Number("failed_logins"); ok && failedLogins > maxFailedLogins {
		alerts = append(alerts, Alert{
			Component: sample.Component,
			Reason:    "Excessive failed logins",
			Severity:  storage.SeverityHigh,
			Metric:    "failed_logins",
			Value:     failedLogins,
		})
	}
	return alerts
}
