package telemetry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFleet(t *testing.T) {
	nodes, err := LoadFleet(filepath.Join("testdata", "fleet.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if nodes[0].Name != "solar-inverter-1" || nodes[0].Type != "solar_inverter" {
		t.Fatalf("unexpected first node: %+v", nodes[0])
	}
	if v, ok := nodes[0].Telemetry.Number("voltage"); !ok || v != 230 {
		t.Fatalf("unexpected voltage: %v %v", v, ok)
	}
	if s, ok := nodes[0].Telemetry.Text("status"); !ok || s != "online" {
		t.Fatalf("unexpected status: %q", s)
	}
	if _, ok := nodes[1].Telemetry.Number("soc"); !ok {
		t.Fatalf("expected numeric soc on second node")
	}
}

func TestLoadFleetMissingFile(t *testing.T) {
	if _, err := LoadFleet(filepath.Join("testdata", "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadFleetRejectsUnnamedNode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	if err := os.WriteFile(path, []byte("nodes:\n  - type: relay\n"), 0o600); err != nil {
		t.Fatalf("write temp fleet: %v", err)
	}
	if _, err := LoadFleet(path); err == nil {
		t.Fatalf("expected error for unnamed node")
	}
}
