package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateWorkerCount(t *testing.T) {
	t.Run("configured count wins verbatim", func(t *testing.T) {
		for _, configured := range []int{1, 2, 7, 64} {
			assert.Equal(t, configured, EstimateWorkerCount(configured, 8, 0.5, 2.0))
		}
	})

	t.Run("never below one worker", func(t *testing.T) {
		assert.Equal(t, 1, EstimateWorkerCount(0, 1, 1.0, 0.1))
		assert.Equal(t, 1, EstimateWorkerCount(0, 0, 1.0, 0.1))
	})

	t.Run("monotone in cpu count", func(t *testing.T) {
		prev := 0
		for cpus := 1; cpus <= 32; cpus++ {
			estimate := EstimateWorkerCount(0, cpus, 0.5, 2.0)
			assert.GreaterOrEqual(t, estimate, 1)
			assert.GreaterOrEqual(t, estimate, prev)
			prev = estimate
		}
	})

	t.Run("load above one is capped", func(t *testing.T) {
		assert.Equal(t, EstimateWorkerCount(0, 8, 1.0, 2.0), EstimateWorkerCount(0, 8, 5.5, 2.0))
	})

	t.Run("zero load treated as unloaded host", func(t *testing.T) {
		assert.Equal(t, EstimateWorkerCount(0, 8, 1.0, 2.0), EstimateWorkerCount(0, 8, 0, 2.0))
	})

	t.Run("falls back to proc factor without cpu count", func(t *testing.T) {
		assert.Equal(t, 4, EstimateWorkerCount(0, 0, 1.0, 4.0))
		assert.Equal(t, 8, EstimateWorkerCount(0, -1, 0.5, 4.0))
	})
}
