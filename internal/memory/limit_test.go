package memory

import (
	"math"
	"runtime/debug"
	"testing"
)

// restoreLimit puts the runtime soft limit back after a test changes it.
func restoreLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestApplyLimitFromEnv(t *testing.T) {
	defaultRatio := DefaultMemoryRatio

	tests := []struct {
		name          string
		memoryLimit   string
		ratio         string
		wantSource    LimitSource
		wantGoMem     int64
		wantRatio     float64
		wantContainer int64
	}{
		{
			name:       "nothing set",
			wantSource: SourceNone,
		},
		{
			name:          "container limit with default ratio",
			memoryLimit:   "1073741824",
			wantSource:    SourceMemoryLimit,
			wantContainer: 1073741824,
			wantGoMem:     int64(float64(1073741824) * defaultRatio),
			wantRatio:     DefaultMemoryRatio,
		},
		{
			name:          "custom ratio",
			memoryLimit:   "1000000",
			ratio:         "0.5",
			wantSource:    SourceMemoryLimit,
			wantContainer: 1000000,
			wantGoMem:     500000,
			wantRatio:     0.5,
		},
		{
			name:          "ratio out of range falls back",
			memoryLimit:   "1000000",
			ratio:         "1.5",
			wantSource:    SourceMemoryLimit,
			wantContainer: 1000000,
			wantGoMem:     850000,
			wantRatio:     DefaultMemoryRatio,
		},
		{
			name:        "garbage limit",
			memoryLimit: "lots",
			wantSource:  SourceNone,
		},
		{
			name:        "negative limit",
			memoryLimit: "-5",
			wantSource:  SourceNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.memoryLimit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			got := ApplyLimitFromEnv()

			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.GoMemLimit != tt.wantGoMem {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.wantGoMem)
			}
			if got.ContainerLimit != tt.wantContainer {
				t.Errorf("ContainerLimit = %d, want %d", got.ContainerLimit, tt.wantContainer)
			}
			if got.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.wantRatio)
			}
			if got.Configured() != (tt.wantGoMem > 0) {
				t.Errorf("Configured() = %v", got.Configured())
			}
			if tt.wantGoMem > 0 {
				if applied := debug.SetMemoryLimit(-1); applied != tt.wantGoMem {
					t.Errorf("runtime limit = %d, want %d", applied, tt.wantGoMem)
				}
			}
		})
	}
}

func TestApplyLimitFromEnv_GOMEMLIMITWins(t *testing.T) {
	restoreLimit(t)
	t.Setenv("GOMEMLIMIT", "512MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")

	before := debug.SetMemoryLimit(-1)
	got := ApplyLimitFromEnv()

	if got.Source != SourceGOMEMLIMIT {
		t.Errorf("Source = %q, want GOMEMLIMIT", got.Source)
	}
	if after := debug.SetMemoryLimit(-1); after != before {
		t.Errorf("runtime limit changed from %d to %d", before, after)
	}
	if before == math.MaxInt64 && got.Configured() {
		t.Error("reported a limit the runtime does not have")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
		{1099511627776, "1.0 TiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
