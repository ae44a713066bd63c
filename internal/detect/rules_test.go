package detect

import (
	"testing"

	"cybergrid-controller/internal/telemetry"
)

func singleMetric(component, key string, v float64) telemetry.Sample {
	return telemetry.Sample{Component: component, Payload: telemetry.Payload{key: telemetry.Number(v)}}
}

func TestVoltageBounds(t *testing.T) {
	cases := []struct {
		voltage float64
		alert   bool
	}{
		{200, false},
		{260, false},
		{199.99, true},
		{260.01, true},
		{230, false},
		{0, true},
	}
	for _, tc := range cases {
		alerts := ruleChecks(singleMetric("n1", "voltage", tc.voltage))
		if tc.alert && len(alerts) != 1 {
			t.Fatalf("voltage %v: expected one alert, got %v", tc.voltage, alerts)
		}
		if !tc.alert && len(alerts) != 0 {
			t.Fatalf("voltage %v: expected no alert, got %v", tc.voltage, alerts)
		}
		if tc.alert && (alerts[0].Reason != "Voltage out of bounds" || alerts[0].Severity != "medium" || alerts[0].Value != tc.voltage) {
			t.Fatalf("voltage %v: unexpected alert %+v", tc.voltage, alerts[0])
		}
	}
}

func TestFrequencyDrift(t *testing.T) {
	cases := []struct {
		frequency float64
		alert     bool
	}{
		{60, false},
		{61.5, false},
		{58.5, false},
		{61.51, true},
		{58.49, true},
	}
	for _, tc := range cases {
		alerts := ruleChecks(singleMetric("n1", "frequency", tc.frequency))
		if tc.alert != (len(alerts) == 1) {
			t.Fatalf("frequency %v: expected alert=%v, got %v", tc.frequency, tc.alert, alerts)
		}
		if tc.alert && alerts[0].Reason != "Frequency deviation" {
			t.Fatalf("frequency %v: unexpected reason %q", tc.frequency, alerts[0].Reason)
		}
	}
}

func TestFailedLoginsThreshold(t *testing.T) {
	if alerts := ruleChecks(singleMetric("n1", "failed_logins", 5)); len(alerts) != 0 {
		t.Fatalf("exactly 5 failed logins must not alert, got %v", alerts)
	}
	alerts := ruleChecks(singleMetric("n1", "failed_logins", 6))
	if len(alerts) != 1 || alerts[0].Reason != "Excessive failed logins" || alerts[0].Severity != "high" {
		t.Fatalf("expected high failed-logins alert, got %v", alerts)
	}
}

func TestOfflineStatus(t *testing.T) {
	sample := telemetry.Sample{Component: "n1", Payload: telemetry.Payload{
		"status":  telemetry.Text("offline"),
		"voltage": telemetry.Number(0),
	}}
	alerts := ruleChecks(sample)
	if len(alerts) != 2 {
		t.Fatalf("expected offline and voltage alerts, got %v", alerts)
	}
	if alerts[0].Reason != "Device offline" || alerts[0].Severity != "high" || alerts[0].Metric != "status" || alerts[0].Value != 0 {
		t.Fatalf("unexpected offline alert: %+v", alerts[0])
	}

	online := telemetry.Sample{Component: "n1", Payload: telemetry.Payload{"status": telemetry.Text("online")}}
	if alerts := ruleChecks(online); len(alerts) != 0 {
		t.Fatalf("online status must not alert, got %v", alerts)
	}
}
