package session

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"daytrader/src/models"
)

// ShardPicker draws a shard id in [0, n). The production picker is
// cryptographically random on purpose: assignments must not be
// predictable or reproducible across runs, so no seeded generator.
type ShardPicker interface {
	Pick(n int) (int, error)
}

type cryptoPicker struct{}

func (cryptoPicker) Pick(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}

	return int(v.Int64()), nil
}

// AssignSymbols partitions the instrument universe across workerCount
// shards with a single forward scan. No rebalancing pass: per-symbol
// work is assumed roughly uniform. Shards may end up empty and still get
// a consumer, since topology wiring is positional.
func AssignSymbols(symbols []string, workerCount int) (models.SymbolAssignment, [][]string, error) {
	return AssignSymbolsUsing(cryptoPicker{}, symbols, workerCount)
}

// AssignSymbolsUsing is AssignSymbols with an injected picker, so tests
// can fix the random source.
func AssignSymbolsUsing(picker ShardPicker, symbols []string, workerCount int) (models.SymbolAssignment, [][]string, error) {
	if workerCount < 1 {
		return nil, nil, fmt.Errorf("AssignSymbolsUsing: invalid worker count %d", workerCount)
	}

	assignment := make(models.SymbolAssignment, len(symbols))
	shardSymbols := make([][]string, workerCount)

	for _, symbol := range symbols {
		shard, err := picker.Pick(workerCount)
		if err != nil {
			return nil, nil, fmt.Errorf("AssignSymbolsUsing: failed to draw shard for %s: %w", symbol, err)
		}

		assignment[symbol] = shard
		shardSymbols[shard] = append(shardSymbols[shard], symbol)
	}

	return assignment, shardSymbols, nil
}
