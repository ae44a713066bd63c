package telemetry

import (
	"math"
	"math/rand/v2"
	"testing"
)

func testFleet() []Node {
	return []Node{
		{Name: "inverter-1", Type: "solar_inverter", Telemetry: Payload{
			"voltage":   Number(230),
			"frequency": Number(60),
			"power_kw":  Number(42),
			"vendor":    Text("acme"),
		}},
		{Name: "gateway-1", Type: "gateway", Telemetry: Payload{
			"failed_logins": Number(1),
			"latency_ms":    Number(12),
		}},
	}
}

func TestSnapshotInvariants(t *testing.T) {
	sim := NewSimulator(testFleet(), rand.New(rand.NewPCG(1, 2)))
	for cycle := 0; cycle < 200; cycle++ {
		samples := sim.Snapshot()
		if len(samples) != 2 {
			t.Fatalf("expected 2 samples, got %d", len(samples))
		}
		for _, sample := range samples {
			status, ok := sample.Payload.Text("status")
			if !ok || (status != "online" && status != "offline") {
				t.Fatalf("unexpected status %q for %s", status, sample.Component)
			}
			logins, ok := sample.Payload.Number("failed_logins")
			if !ok || logins < 0 || logins != math.Trunc(logins) {
				t.Fatalf("failed_logins must be a non-negative integer, got %v", logins)
			}
			if v, ok := sample.Payload.Number("voltage"); ok && v < 0 {
				t.Fatalf("voltage must not go negative, got %v", v)
			}
			if status == "offline" {
				v, _ := sample.Payload.Number("voltage")
				f, _ := sample.Payload.Number("frequency")
				if v != 0 || f != 0 {
					t.Fatalf("offline sample must zero voltage and frequency, got %v and %v", v, f)
				}
			}
		}
	}
}

func TestSnapshotJitterStaysNearBase(t *testing.T) {
	sim := NewSimulator(testFleet()[:1], rand.New(rand.NewPCG(3, 4)))
	for cycle := 0; cycle < 200; cycle++ {
		sample := sim.Snapshot()[0]
		if status, _ := sample.Payload.Text("status"); status == "offline" {
			continue
		}
		if v, ok := sample.Payload.Number("voltage"); !ok || v < 216 || v > 248 {
			t.Fatalf("voltage jitter out of range: %v", v)
		}
		if f, ok := sample.Payload.Number("frequency"); !ok || f < 58.8 || f > 61.2 {
			t.Fatalf("frequency jitter out of range: %v", f)
		}
	}
}

func TestSnapshotPreservesTextFields(t *testing.T) {
	sim := NewSimulator(testFleet(), rand.New(rand.NewPCG(7, 7)))
	vendor, ok := sim.Snapshot()[0].Payload.Text("vendor")
	if !ok || vendor != "acme" {
		t.Fatalf("expected vendor passthrough, got %q", vendor)
	}
}

func TestEmptySimulator(t *testing.T) {
	sim := NewSimulator(nil, nil)
	if !sim.Empty() {
		t.Fatalf("expected empty simulator")
	}
	if got := sim.Snapshot(); len(got) != 0 {
		t.Fatalf("expected no samples, got %d", len(got))
	}
}
