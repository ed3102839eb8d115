package indicators

import (
	"math"
	"testing"
)

func TestSMALastValue(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := SMA(values, 3); got != 4 {
		t.Fatalf("SMA=%v, expected 4", got)
	}
	if got := SMA(values, 6); got != 0 {
		t.Fatalf("SMA with short input=%v, expected 0", got)
	}
}

func TestSMASeriesShortInput(t *testing.T) {
	got := SMASeries([]float64{2, 4, 6}, 5)
	if len(got) != 3 {
		t.Fatalf("len=%d, expected 3 (length-matched)", len(got))
	}
	for i, v := range got {
		if v != 4 {
			t.Fatalf("slot %d=%v, expected constant full-input mean 4", i, v)
		}
	}
}

func TestSMASeriesLeadingRun(t *testing.T) {
	got := SMASeries([]float64{1, 2, 3, 4, 5, 6}, 3)
	want := []float64{2, 2, 2, 3, 4, 5}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("slot %d=%v, expected %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6}
	if got := RSI(up, 5); got != 100 {
		t.Fatalf("all-gains RSI=%v, expected 100", got)
	}

	if got := RSI([]float64{1, 2}, 5); got != 0 {
		t.Fatalf("short-input RSI=%v, expected 0", got)
	}
}

func TestRSISeriesBackfill(t *testing.T) {
	values := []float64{10, 11, 12, 11, 13, 12, 14}
	got := RSISeries(values, 3)
	if len(got) != len(values) {
		t.Fatalf("len=%d, expected %d", len(got), len(values))
	}
	// Leading slots carry the first computable value.
	first := got[3]
	for i := 0; i < 3; i++ {
		if got[i] != first {
			t.Fatalf("slot %d=%v, expected backfill %v", i, got[i], first)
		}
	}
	for i, v := range got {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("slot %d is not finite: %v", i, v)
		}
	}
}
