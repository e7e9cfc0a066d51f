package quantize

import (
	"runtime"
	"strings"
)

const (
	defaultWorkerCap = 8
	maxWorkerCap     = 12
)

const (
	ResamplingBilinear       = "bilinear"
	ResamplingApproxBilinear = "approx-bilinear"
	ResamplingNearest        = "nearest"
	ResamplingCatmullRom     = "catmull-rom"
)

var defaultOptions = Options{
	Resampling:        ResamplingBilinear,
	WorkerCount:       0,
	TransparentCutoff: 0,
}

type Options struct {
	Resampling        string `json:"resampling"`
	WorkerCount       int    `json:"workerCount"`
	TransparentCutoff int    `json:"transparentCutoff"`
}

func DefaultOptions() Options {
	return defaultOptions
}

func NormalizeOptions(options Options) Options {
	return options.normalized()
}

func NormalizeResampling(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case ResamplingApproxBilinear:
		return ResamplingApproxBilinear
	case ResamplingNearest:
		return ResamplingNearest
	case ResamplingCatmullRom:
		return ResamplingCatmullRom
	default:
		return ResamplingBilinear
	}
}

func (o Options) normalized() Options {
	normalized := o
	normalized.Resampling = NormalizeResampling(normalized.Resampling)

	if normalized.WorkerCount <= 0 {
		defaultWorkers := runtime.GOMAXPROCS(0) - 1
		if defaultWorkers < 1 {
			defaultWorkers = 1
		}
		normalized.WorkerCount = minInt(defaultWorkers, defaultWorkerCap)
	}
	maxWorkers := maxInt(1, minInt(runtime.GOMAXPROCS(0), maxWorkerCap))
	normalized.WorkerCount = clampInt(normalized.WorkerCount, 1, maxWorkers)

	normalized.TransparentCutoff = clampInt(normalized.TransparentCutoff, 0, 256)

	return normalized
}

// splitRange returns the half-open row span owned by workerIndex.
func splitRange(length int, workers int, workerIndex int) (int, int) {
	chunk := length / workers
	remainder := length % workers

	start := workerIndex*chunk + minInt(workerIndex, remainder)
	end := start + chunk
	if workerIndex < remainder {
		end++
	}

	return start, end
}

func clampInt(value int, minimum int, maximum int) int {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}

	return value
}

func minInt(left int, right int) int {
	if left < right {
		return left
	}

	return right
}

func maxInt(left int, right int) int {
	if left > right {
		return left
	}

	return right
}
