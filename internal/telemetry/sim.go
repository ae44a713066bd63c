package telemetry

import (
	"math"
	"math/rand/v2"
)

const offlineChance = 0.12

// Simulator synthesizes jittered telemetry snapshots for a fleet of
// grid-edge nodes, standing in for the real field feed.
type Simulator struct {
	nodes []Node
	rng   *rand.Rand
}

// NewSimulator builds a simulator over the fleet. A nil rng gets a
// randomly seeded source; tests pass a pinned one.
func NewSimulator(nodes []Node, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{nodes: nodes, rng: rng}
}

func (s *Simulator) Empty() bool { return len(s.nodes) == 0 }

// Snapshot produces one jittered sample per fleet node.
func (s *Simulator) Snapshot() []Sample {
	samples := make([]Sample, 0, len(s.nodes))
	for _, node := range s.nodes {
		samples = append(samples, Sample{Component: node.Name, Payload: s.jitter(node.Telemetry)})
	}
	return samples
}

func (s *Simulator) jitter(base Payload) Payload {
	out := make(Payload, len(base)+2)
	for key, value := range base {
		if value.Kind != KindNumber {
			out[key] = value
			continue
		}
		if key == "failed_logins" {
			n := int(math.Round(value.Num)) + s.intBetween(-2, 3)
			out[key] = Number(float64(max(0, n)))
			continue
		}
		out[key] = Number(s.jitterNumber(key, value.Num))
	}
	if s.rng.Float64() < offlineChance {
		out["status"] = Text("offline")
		out["voltage"] = Number(0)
		out["frequency"] = Number(0)
	} else if _, ok := out["status"]; !ok {
		out["status"] = Text("online")
	}
	if _, ok := out["failed_logins"]; !ok {
		out["failed_logins"] = Number(float64(s.intBetween(0, 4)))
	}
	return out
}

func (s *Simulator) jitterNumber(key string, v float64) float64 {
	switch key {
	case "voltage":
		return round2(math.Max(0, v+s.uniform(-14, 18)))
	case "frequency":
		return round3(v + s.uniform(-1.2, 1.2))
	case "power_kw", "soc":
		return round2(math.Max(0, v+s.uniform(-22, 28)))
	}
	span := math.Max(1, math.Abs(v)*0.08)
	return round2(v + s.uniform(-span, span))
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// intBetween draws from [lo, hi] inclusive.
func (s *Simulator) intBetween(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
