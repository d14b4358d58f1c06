package queue

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/src/models"
)

func TestQueueRoundTrip(t *testing.T) {
	t.Run("fifo delivery", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shard-0.sock")

		receiver, err := Listen(path)
		require.NoError(t, err)
		defer receiver.Close()

		sent := []models.BarMessage{
			{RunID: "run-1", Symbol: "AAA", Close: 10.5, Volume: 100},
			{RunID: "run-1", Symbol: "BBB", Close: 20.25, Volume: 200},
			{RunID: "run-1", Symbol: "AAA", Close: 10.75, Volume: 50},
		}

		go func() {
			sender, err := Dial(path, 2*time.Second)
			if err != nil {
				t.Error(err)
				return
			}
			defer sender.Close()

			for _, msg := range sent {
				if err := sender.Send(msg); err != nil {
					t.Error(err)
					return
				}
			}
		}()

		var received []models.BarMessage
		for {
			var msg models.BarMessage
			if err := receiver.Receive(&msg); err != nil {
				assert.Equal(t, io.EOF, err)
				break
			}

			received = append(received, msg)
		}

		assert.Equal(t, sent, received)
	})

	t.Run("dial times out without a listener", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nobody.sock")

		_, err := Dial(path, 100*time.Millisecond)
		assert.Error(t, err)
	})
}
