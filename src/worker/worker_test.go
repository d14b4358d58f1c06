package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribePayload(t *testing.T) {
	t.Run("prefixes minute aggregates per symbol", func(t *testing.T) {
		payload := subscribePayload([]string{"AAPL", "TSLA"})

		assert.Equal(t, "subscribe", payload["action"])
		assert.Equal(t, "AM.AAPL,AM.TSLA", payload["params"])
	})

	t.Run("single symbol carries no separator", func(t *testing.T) {
		payload := subscribePayload([]string{"AAPL"})
		assert.Equal(t, "AM.AAPL", payload["params"])
	})
}

func TestSymbolState(t *testing.T) {
	s := &symbolState{}

	for i := 0; i < rollingWindow+30; i++ {
		s.push(float64(i))
	}

	assert.Len(t, s.closes, rollingWindow)
	assert.Equal(t, 30.0, s.closes[0])
	assert.Equal(t, float64(rollingWindow+29), s.closes[len(s.closes)-1])
}
