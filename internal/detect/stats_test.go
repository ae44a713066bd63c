package detect

import "testing"

func TestMean(t *testing.T) {
	if got := Mean([]float64{2, 4, 6}); got != 4 {
		t.Fatalf("expected mean 4, got %v", got)
	}
	if got := Mean(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
}

func TestStdDevPopulation(t *testing.T) {
	if got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); got != 2 {
		t.Fatalf("expected stdev 2, got %v", got)
	}
	if got := StdDev([]float64{5, 5, 5}); got != 0 {
		t.Fatalf("expected 0 for constant input, got %v", got)
	}
	if got := StdDev(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %v", got)
	}
}
