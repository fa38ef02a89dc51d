package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"desktop-thumbnailer/internal/logging"
)

// DefaultRatio is the share of the container limit given to the Go heap.
// The rest is left for libvips and external thumbnailer processes.
const DefaultRatio = 0.85

// Result describes what Configure did.
type Result struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "config" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// Configure sets GOMEMLIMIT to ratio of containerLimit. An explicit
// GOMEMLIMIT in the environment always wins. Call it before significant
// allocations.
func Configure(containerLimit int64, ratio float64) Result {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		result := Result{Source: "GOMEMLIMIT"}
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	if containerLimit <= 0 {
		logging.Debug("No memory limit configured, GOMEMLIMIT left unset")
		return Result{Source: "none"}
	}

	if ratio <= 0 || ratio > 1 {
		logging.Warn("Memory ratio %.2f out of range (0.0-1.0], using %.2f", ratio, DefaultRatio)
		ratio = DefaultRatio
	}

	limit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(limit)
	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s)",
		FormatBytes(limit), ratio*100, FormatBytes(containerLimit))

	return Result{
		Configured:     true,
		Source:         "config",
		ContainerLimit: containerLimit,
		GoMemLimit:     limit,
		Ratio:          ratio,
	}
}

// FormatBytes renders b with binary units.
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
