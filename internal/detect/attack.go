package detect

import (
	"context"
	"fmt"

	"cybergrid-controller/internal/storage"
)

const defaultAttackTarget = "microgrid-core"

type attackScenario struct {
	severity    string
	description string
	mitigation  string
}

var attackCatalog = map[string]attackScenario{
	"dos": {
		severity:    storage.SeverityCritical,
		description: "Detected high-rate traffic saturating control interface",
		mitigation:  "Rate limiting applied, offending IPs blocked",
	},
	"spoof": {
		severity:    storage.SeverityHigh,
		description: "Detected spoofed telemetry with inconsistent signatures",
		mitigation:  "Telemetry quarantined, device certificates revalidated",
	},
	"malware": {
		severity:    storage.SeverityCritical,
		description: "Firmware integrity violation detected during scan",
		mitigation:  "Patch manager rolled back update and isolated node",
	},
}

var genericScenario = attackScenario{
	severity:    storage.SeverityMedium,
	description: "Generic anomalous behavior detected",
	mitigation:  "IPS applied standard containment",
}

// SimulateAttack emits a synthetic alert from the scenario catalog.
// Operator-triggered simulations always record, bypassing cooldown.
func (e *Engine) SimulateAttack(ctx context.Context, attackType, component string) Alert {
	if component == "" {
		component = defaultAttackTarget
	}
	scenario, ok := attackCatalog[attackType]
	if !ok {
		scenario = genericScenario
	}
	alert := Alert{
		Component:   component,
		Reason:      fmt.Sprintf("Simulated %s attack", attackType),
		Severity:    scenario.severity,
		Metric:      attackType,
		Value:       1,
		Description: scenario.description,
		Mitigation:  scenario.mitigation,
	}
	e.persistAlert(ctx, alert)
	return alert
}
