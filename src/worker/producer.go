package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
	"daytrader/src/queue"
)

const dialQueueTimeout = 30 * time.Second

// ProducerArgs is everything the data producer needs to route live bars:
// the full universe, the symbol-to-shard map, every shard queue in shard
// order and the scanner feed.
type ProducerArgs struct {
	RunID       string
	FeedURL     string
	APIKey      string
	Symbols     []string
	Assignment  models.SymbolAssignment
	WindowClose time.Time
	ShardQueues []string
	FeedQueue   string
}

// aggregateEvent is one minute aggregate from the market-data websocket.
type aggregateEvent struct {
	Event   string  `json:"ev"`
	Symbol  string  `json:"sym"`
	Open    float64 `json:"o"`
	High    float64 `json:"h"`
	Low     float64 `json:"l"`
	Close   float64 `json:"c"`
	Volume  float64 `json:"v"`
	StartMs int64   `json:"s"`
}

// RunProducer streams live minute aggregates and distributes each bar to
// the shard queue owning its symbol, mirroring every bar onto the
// scanner feed. It is the sole writer of every queue it holds; closing
// them on return is what lets the consumers and scanner drain and exit.
func RunProducer(ctx context.Context, args ProducerArgs) error {
	shards := make([]*queue.Sender, len(args.ShardQueues))
	for i, path := range args.ShardQueues {
		sender, err := queue.Dial(path, dialQueueTimeout)
		if err != nil {
			return fmt.Errorf("RunProducer: failed to attach shard %d: %w", i, err)
		}
		defer sender.Close()

		shards[i] = sender
	}

	feed, err := queue.Dial(args.FeedQueue, dialQueueTimeout)
	if err != nil {
		return fmt.Errorf("RunProducer: failed to attach scanner feed: %w", err)
	}
	defer feed.Close()

	conn, err := connectFeed(args.FeedURL, args.APIKey, args.Symbols)
	if err != nil {
		return fmt.Errorf("RunProducer: %w", err)
	}
	defer conn.Close()

	log.Infof("producer %s streaming %d symbols into %d shards", args.RunID, len(args.Symbols), len(shards))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !time.Now().Before(args.WindowClose) {
			log.Info("window close reached, producer stopping")
			return nil
		}

		conn.SetReadDeadline(time.Now().UTC().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Errorf("ReadMessage(): %v", err)

			newConn, newErr := connectFeed(args.FeedURL, args.APIKey, args.Symbols)
			if newErr != nil {
				return fmt.Errorf("RunProducer: reconnect failed: %w", newErr)
			}

			conn.Close()
			conn = newConn
			continue
		}

		var batch []aggregateEvent
		if err := json.Unmarshal(message, &batch); err != nil {
			log.Warnf("failed to parse feed message: %v", err)
			continue
		}

		for _, event := range batch {
			if event.Event != "AM" {
				continue
			}

			shard, found := args.Assignment[event.Symbol]
			if !found {
				continue
			}

			bar := models.BarMessage{
				RunID:     args.RunID,
				Symbol:    event.Symbol,
				Timestamp: time.UnixMilli(event.StartMs).UTC(),
				Open:      event.Open,
				High:      event.High,
				Low:       event.Low,
				Close:     event.Close,
				Volume:    event.Volume,
			}

			if err := shards[shard].Send(bar); err != nil {
				return fmt.Errorf("RunProducer: shard %d send failed: %w", shard, err)
			}

			if err := feed.Send(bar); err != nil {
				return fmt.Errorf("RunProducer: feed send failed: %w", err)
			}
		}
	}
}

func connectFeed(feedURL, apiKey string, symbols []string) (*websocket.Conn, error) {
	log.Infof("connecting to %s", feedURL)

	conn, _, err := websocket.DefaultDialer.Dial(feedURL, nil)
	if err != nil {
		return nil, err
	}

	if conn == nil {
		return nil, fmt.Errorf("connectFeed: connection is nil")
	}

	auth := map[string]string{"action": "auth", "params": apiKey}
	if err := conn.WriteJSON(auth); err != nil {
		return nil, fmt.Errorf("connectFeed: failed to authenticate: %v", err)
	}

	if err := conn.WriteJSON(subscribePayload(symbols)); err != nil {
		return nil, fmt.Errorf("connectFeed: failed to subscribe: %v", err)
	}

	return conn, nil
}

func subscribePayload(symbols []string) map[string]string {
	params := ""
	for i, symbol := range symbols {
		if i > 0 {
			params += ","
		}
		params += "AM." + symbol
	}

	return map[string]string{"action": "subscribe", "params": params}
}
