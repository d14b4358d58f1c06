package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/kataras/go-events"
	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
	"daytrader/src/queue"
)

// ScannerPick is emitted on the event bus when a bar clears a configured
// scanner's thresholds.
const ScannerPick events.EventName = "scanner:pick"

type Pick struct {
	ScannerName string
	Symbol      string
	Price       float64
	Volume      float64
	At          time.Time
}

// ScannerArgs binds the scanner to the trading window and its feed
// queue. In scanners-only mode this is the entire running pipeline.
type ScannerArgs struct {
	RunID       string
	WindowOpen  time.Time
	WindowClose time.Time
	FeedQueue   string
	Plan        models.TradingPlan
}

// RunScanner evaluates every configured scanner against the feed until
// the producer closes it or the trading window ends. Picks fan out over
// the process-local event bus so additional sinks can attach without
// touching the scan loop.
func RunScanner(ctx context.Context, args ScannerArgs) error {
	if len(args.Plan.Scanners) == 0 {
		return fmt.Errorf("RunScanner: no scanners configured")
	}

	events.On(ScannerPick, logPick)

	receiver, err := queue.Listen(args.FeedQueue)
	if err != nil {
		return fmt.Errorf("RunScanner: %w", err)
	}
	defer receiver.Close()

	// in scanners-only mode nothing ever dials the feed; the deadline
	// keeps the accept from outliving the trading window
	if err := receiver.SetDeadline(args.WindowClose); err != nil {
		return fmt.Errorf("RunScanner: %w", err)
	}

	log.Infof("scanner %s running %d scanners until %v", args.RunID, len(args.Plan.Scanners), args.WindowClose)

	prevCloses := make(map[string]float64)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !time.Now().Before(args.WindowClose) {
			log.Info("window close reached, scanner stopping")
			return nil
		}

		var bar models.BarMessage
		if err := receiver.Receive(&bar); err != nil {
			if errors.Is(err, io.EOF) {
				log.Infof("scanner %s feed drained", args.RunID)
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Info("window close reached, scanner stopping")
				return nil
			}

			return fmt.Errorf("RunScanner: receive failed: %w", err)
		}

		// pre-open bars seed previous closes but never trigger picks
		if bar.Timestamp.Before(args.WindowOpen) {
			prevCloses[bar.Symbol] = bar.Close
			continue
		}

		for _, scanner := range args.Plan.Scanners {
			if scanner.Matches(prevCloses[bar.Symbol], bar.Close, bar.Volume) {
				events.Emit(ScannerPick, Pick{
					ScannerName: scanner.Name,
					Symbol:      bar.Symbol,
					Price:       bar.Close,
					Volume:      bar.Volume,
					At:          bar.Timestamp,
				})
			}
		}

		prevCloses[bar.Symbol] = bar.Close
	}
}

func logPick(payload ...interface{}) {
	pick, ok := payload[0].(Pick)
	if !ok {
		return
	}

	log.WithFields(log.Fields{
		"scanner": pick.ScannerName,
		"symbol":  pick.Symbol,
		"price":   pick.Price,
		"volume":  pick.Volume,
	}).Info("scanner pick")
}
