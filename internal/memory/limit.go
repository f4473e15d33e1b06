package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"image-viewer/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit handed to the Go heap.
const DefaultMemoryRatio = 0.85

// LimitSource names where the heap limit came from.
type LimitSource string

const (
	SourceNone        LimitSource = "none"
	SourceGOMEMLIMIT  LimitSource = "GOMEMLIMIT"
	SourceMemoryLimit LimitSource = "MEMORY_LIMIT"
)

// Limit describes the heap limit in effect after ApplyLimitFromEnv.
type Limit struct {
	Source LimitSource
	// ContainerLimit is MEMORY_LIMIT in bytes, 0 when unset.
	ContainerLimit int64
	// GoMemLimit is the resulting soft limit in bytes, 0 when none.
	GoMemLimit int64
	// Ratio is the share of ContainerLimit used, 0 when not applicable.
	Ratio float64
}

// Configured reports whether a soft memory limit is in effect.
func (l Limit) Configured() bool {
	return l.GoMemLimit > 0
}

// ApplyLimitFromEnv sets the runtime soft memory limit from the environment.
// Call it early in main, before large allocations.
//
//   - GOMEMLIMIT, when set, is left to the runtime and only reported
//   - MEMORY_LIMIT is a container limit in bytes (Kubernetes Downward API)
//   - MEMORY_RATIO is the share of MEMORY_LIMIT to use (default 0.85)
func ApplyLimitFromEnv() Limit {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		limit := Limit{Source: SourceGOMEMLIMIT}
		if current := debug.SetMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
			limit.GoMemLimit = current
		}
		logging.Debug("GOMEMLIMIT set via environment: %s", env)
		return limit
	}

	raw := os.Getenv("MEMORY_LIMIT")
	if raw == "" {
		return Limit{Source: SourceNone}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Ignoring invalid MEMORY_LIMIT %q", raw)
		return Limit{Source: SourceNone}
	}

	ratio := parseRatio(os.Getenv("MEMORY_RATIO"))
	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	return Limit{
		Source:         SourceMemoryLimit,
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func parseRatio(raw string) float64 {
	if raw == "" {
		return DefaultMemoryRatio
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio <= 0 || ratio > 1 {
		logging.Warn("MEMORY_RATIO %q must be in (0, 1], using %.2f", raw, DefaultMemoryRatio)
		return DefaultMemoryRatio
	}
	return ratio
}

// FormatBytes renders a byte count with binary units, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
