package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradingPlan(t *testing.T) {
	t.Run("load from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tradeplan.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
scanners:
  - name: momentum
    symbols: [AAA, BBB]
    minVolume: 100000
strategies:
  - name: momentum-short
    maxPositions: 5
workers: 4
procScalingFactor: 2.0
scannersOnly: true
`), 0o644))

		plan, err := LoadTradingPlan(path)
		require.NoError(t, err)

		assert.NoError(t, plan.Validate())
		assert.Equal(t, 4, plan.Workers)
		assert.True(t, plan.ScannersOnly)
		assert.Equal(t, []string{"AAA", "BBB"}, plan.ScanSymbols())
	})

	t.Run("missing plan file", func(t *testing.T) {
		_, err := LoadTradingPlan(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("zero scanners rejected", func(t *testing.T) {
		plan := TradingPlan{Strategies: []StrategyYAML{{Name: "s"}}}
		assert.Error(t, plan.Validate())
	})

	t.Run("zero strategies rejected", func(t *testing.T) {
		plan := TradingPlan{Scanners: []ScannerYAML{{Name: "sc"}}}
		assert.Error(t, plan.Validate())
	})

	t.Run("scan symbols deduplicated in first-seen order", func(t *testing.T) {
		plan := TradingPlan{Scanners: []ScannerYAML{
			{Name: "a", Symbols: []string{"BBB", "AAA"}},
			{Name: "b", Symbols: []string{"AAA", "CCC"}},
		}}

		assert.Equal(t, []string{"BBB", "AAA", "CCC"}, plan.ScanSymbols())
	})
}

func TestScannerMatches(t *testing.T) {
	scanner := ScannerYAML{Name: "gap-up", MinVolume: 1000, MinGapPercent: 2.0}

	t.Run("volume below threshold", func(t *testing.T) {
		assert.False(t, scanner.Matches(100, 110, 500))
	})

	t.Run("gap below threshold", func(t *testing.T) {
		assert.False(t, scanner.Matches(100, 101, 5000))
	})

	t.Run("gap and volume clear", func(t *testing.T) {
		assert.True(t, scanner.Matches(100, 103, 5000))
	})

	t.Run("no previous close disables the gap check", func(t *testing.T) {
		assert.True(t, scanner.Matches(0, 101, 5000))
	})
}
