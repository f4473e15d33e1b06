package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")
	procs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{name: "one per cpu", multiplier: 1.0, limit: 0, want: procs},
		{name: "two per cpu", multiplier: 2.0, limit: 0, want: procs * 2},
		{name: "limit caps", multiplier: 2.0, limit: 1, want: 1},
		{name: "tiny multiplier floors at one", multiplier: 0.0001, limit: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Count(tt.multiplier, tt.limit); got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		override string
		limit    int
		want     int
	}{
		{name: "valid override", override: "5", limit: 0, want: 5},
		{name: "override capped by limit", override: "50", limit: 8, want: 8},
		{name: "zero ignored", override: "0", limit: 1, want: 1},
		{name: "negative ignored", override: "-3", limit: 1, want: 1},
		{name: "garbage ignored", override: "lots", limit: 1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OverrideEnv, tt.override)
			if got := Count(1.0, tt.limit); got != tt.want {
				t.Errorf("Count() with %s=%q = %d, want %d", OverrideEnv, tt.override, got, tt.want)
			}
		})
	}
}

func TestForIOAtLeastCPUCount(t *testing.T) {
	t.Setenv(OverrideEnv, "")

	if ForIO(0) < Count(1.0, 0) {
		t.Errorf("ForIO(0) = %d should be >= Count(1.0, 0) = %d", ForIO(0), Count(1.0, 0))
	}
	if ForIO(3) > 3 {
		t.Errorf("ForIO(3) = %d exceeds limit", ForIO(3))
	}
}
