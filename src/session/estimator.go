package session

import (
	"math"

	"github.com/shirou/gopsutil/v3/load"
	log "github.com/sirupsen/logrus"
)

// EstimateWorkerCount picks the number of consumer shards for a run.
//
// A configured count always wins: load-average sampling is noisy at
// process start, so the operator override is taken verbatim. Otherwise
// the count scales with available cores, normalized by load so an
// already-busy host is not oversubscribed.
func EstimateWorkerCount(configured int, cpus int, loadAvg float64, procFactor float64) int {
	if configured > 0 {
		return configured
	}

	if loadAvg <= 0 {
		loadAvg = 1.0
	}

	normalizedLoad := math.Min(loadAvg, 1.0)

	var estimate float64
	if cpus > 0 {
		estimate = math.Ceil(float64(cpus) / normalizedLoad * procFactor)
	} else {
		estimate = math.Ceil(procFactor / normalizedLoad)
	}

	if estimate < 1 {
		return 1
	}

	return int(estimate)
}

// SampleHostLoad reads the host's 1-minute load average. Zero is
// returned when the platform does not expose it, which the estimator
// treats as an unloaded host.
func SampleHostLoad() float64 {
	avg, err := load.Avg()
	if err != nil {
		log.Warnf("SampleHostLoad: failed to read load average: %v", err)
		return 0
	}

	return avg.Load1
}
