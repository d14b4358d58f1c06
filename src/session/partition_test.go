package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequencePicker returns canned draws, cycling when exhausted.
type sequencePicker struct {
	draws []int
	next  int
}

func (p *sequencePicker) Pick(n int) (int, error) {
	draw := p.draws[p.next%len(p.draws)]
	p.next++
	return draw % n, nil
}

func TestAssignSymbols(t *testing.T) {
	t.Run("total function over the universe", func(t *testing.T) {
		symbols := []string{"AAA", "BBB", "CCC", "DDD", "EEE"}

		assignment, shardSymbols, err := AssignSymbols(symbols, 3)
		require.NoError(t, err)

		assert.Len(t, assignment, len(symbols))
		for _, symbol := range symbols {
			shard, found := assignment[symbol]
			assert.True(t, found)
			assert.GreaterOrEqual(t, shard, 0)
			assert.Less(t, shard, 3)
		}

		total := 0
		for _, shard := range shardSymbols {
			total += len(shard)
		}
		assert.Equal(t, len(symbols), total)
	})

	t.Run("single worker owns everything", func(t *testing.T) {
		symbols := []string{"AAA", "BBB", "CCC"}

		assignment, shardSymbols, err := AssignSymbols(symbols, 1)
		require.NoError(t, err)

		for _, symbol := range symbols {
			assert.Equal(t, 0, assignment[symbol])
		}
		assert.Equal(t, symbols, shardSymbols[0])
	})

	t.Run("two shards cover three symbols with no loss", func(t *testing.T) {
		symbols := []string{"AAA", "BBB", "CCC"}

		assignment, shardSymbols, err := AssignSymbols(symbols, 2)
		require.NoError(t, err)
		require.Len(t, shardSymbols, 2)

		seen := make(map[string]int)
		for _, shard := range shardSymbols {
			for _, symbol := range shard {
				seen[symbol]++
			}
		}

		for _, symbol := range symbols {
			assert.Equal(t, 1, seen[symbol], "symbol %s must appear exactly once", symbol)
		}

		for symbol, shard := range assignment {
			assert.Contains(t, shardSymbols[shard], symbol)
		}
	})

	t.Run("first-seen order preserved within a shard", func(t *testing.T) {
		picker := &sequencePicker{draws: []int{1, 0, 1, 1, 0}}

		_, shardSymbols, err := AssignSymbolsUsing(picker, []string{"AAA", "BBB", "CCC", "DDD", "EEE"}, 2)
		require.NoError(t, err)

		assert.Equal(t, []string{"BBB", "EEE"}, shardSymbols[0])
		assert.Equal(t, []string{"AAA", "CCC", "DDD"}, shardSymbols[1])
	})

	t.Run("empty shards are valid", func(t *testing.T) {
		picker := &sequencePicker{draws: []int{0}}

		_, shardSymbols, err := AssignSymbolsUsing(picker, []string{"AAA", "BBB"}, 4)
		require.NoError(t, err)

		assert.Len(t, shardSymbols, 4)
		assert.Empty(t, shardSymbols[3])
	})

	t.Run("invalid worker count rejected", func(t *testing.T) {
		_, _, err := AssignSymbols([]string{"AAA"}, 0)
		assert.Error(t, err)
	})
}
