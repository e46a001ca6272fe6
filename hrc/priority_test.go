package hrc

import (
	"math"
	"testing"
)

func TestPriorityByIndexRatioFamilies(t *testing.T) {
	cases := []struct {
		index    int
		in, out  float64
		expected float64
	}{
		{1, 3, 1, (3 + 1) / (1 + 1)},
		{2, 3, 1, (3 + 1) / (1 + 1)},
		{4, 3, 1, (3 + 1) / (1 + 1)},
		{5, 3, 1, (3 + 1) * (3 + 1) / (1 + 1)},
		{8, 3, 1, (3 + 1) * (3 + 1) / (1 + 1)},
		{9, 3, 1, (3 + 1) / ((1 + 1) * (1 + 1))},
		{12, 3, 1, (3 + 1) / ((1 + 1) * (1 + 1))},
		{14, 3, 1, 3 - 1},
	}
	for _, c := range cases {
		got := PriorityByIndex(c.index)(true, true, c.in, c.out)
		if got != c.expected {
			t.Errorf("index %d: got %v, want %v", c.index, got, c.expected)
		}
	}
}

// TestPriorityByIndexEntryExitSentinels checks the entry/exit columns
// of the function table: an entry task (no input streams) and an exit task
// (no output streams) use the dedicated entry/exit column instead of
// feeding a -1 sentinel into the middle formula.
func TestPriorityByIndexEntryExitSentinels(t *testing.T) {
	cases := []struct {
		name     string
		index    int
		hasIn    bool
		hasOut   bool
		in, out  float64
		expected float64
	}{
		{"func1 entry", 1, false, true, 0, 2, 0},
		{"func2 exit", 2, true, false, 3, 0, 3 + 1},
		{"func3 entry", 3, false, true, 0, 2, 1.0 / (2 + 1)},
		{"func4 exit", 4, true, false, 3, 0, 3 + 1},
		{"func6 exit", 6, true, false, 3, 0, (3 + 1) * (3 + 1)},
	}
	for _, c := range cases {
		got := PriorityByIndex(c.index)(c.hasIn, c.hasOut, c.in, c.out)
		if got != c.expected {
			t.Errorf("%s: got %v, want %v", c.name, got, c.expected)
		}
	}
}

// TestPriorityByIndexSinkSentinel checks that the 1-12 families, which
// return +Inf for an odd-numbered exit variant, treat a sink task
// (hasOut == false) as having effectively infinite priority rather than
// panicking on a division by zero.
func TestPriorityByIndexSinkSentinel(t *testing.T) {
	for _, index := range []int{1, 3, 5, 7, 9, 11} {
		got := PriorityByIndex(index)(true, false, 5, 0)
		if !math.IsInf(got, 1) {
			t.Errorf("index %d with no output streams: got %v, want +Inf", index, got)
		}
	}
}

func TestPriorityByIndexOutOfRangeFallsBackToLinear(t *testing.T) {
	fn := PriorityByIndex(999)
	if got := fn(true, true, 5, 2); got != 3 {
		t.Errorf("out-of-range index: got %v, want 3 (5-2)", got)
	}
}

func TestLocationPriorityNilHookIsZero(t *testing.T) {
	p := LocationPriority{}
	if got := p.compute(nil); got != 0 {
		t.Errorf("compute with nil hook = %v, want 0", got)
	}
}

// TestPriorityByIndex13IsDynamicRandom checks function 13 reseeds on
// every call (unlike StaticRandomPriority, sampled once), while still
// falling in the same [0, 1000) range.
func TestPriorityByIndex13IsDynamicRandom(t *testing.T) {
	fn := PriorityByIndex(13)
	seen := make(map[float64]bool)
	for i := 0; i < 20; i++ {
		p := fn(true, true, 5, 2)
		if p < 0 || p >= 1000 {
			t.Fatalf("PriorityByIndex(13)(...) = %v, want [0, 1000)", p)
		}
		seen[p] = true
	}
	if len(seen) < 2 {
		t.Fatalf("PriorityByIndex(13) returned the same value %d times in a row, want reseeded-per-call randomness", 20)
	}
}

func TestStaticRandomPriorityRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		p := StaticRandomPriority()
		if p < 0 || p >= 1000 {
			t.Fatalf("StaticRandomPriority() = %v, want [0, 1000)", p)
		}
	}
}
