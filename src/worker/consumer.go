package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
	"daytrader/src/queue"
	"daytrader/src/services"
)

// rollingWindow caps how much per-symbol history a consumer keeps live.
const rollingWindow = 120

// ConsumerArgs binds a consumer to its shard: one queue it alone reads,
// the symbols it owns and the warm-up directory holding their history.
type ConsumerArgs struct {
	RunID     string
	Symbols   []string
	QueuePath string
	WarmUpDir string
	Plan      models.TradingPlan
}

type symbolState struct {
	closes []float64
}

func (s *symbolState) push(close float64) {
	s.closes = append(s.closes, close)
	if len(s.closes) > rollingWindow {
		s.closes = s.closes[len(s.closes)-rollingWindow:]
	}
}

// RunConsumer seeds per-symbol state from the warm-up files, then drains
// its shard queue until the producer closes it. A shard with no symbols
// still runs and simply idles until EOF.
func RunConsumer(ctx context.Context, args ConsumerArgs) error {
	receiver, err := queue.Listen(args.QueuePath)
	if err != nil {
		return fmt.Errorf("RunConsumer: %w", err)
	}
	defer receiver.Close()

	state := make(map[string]*symbolState, len(args.Symbols))
	for _, symbol := range args.Symbols {
		s := &symbolState{}

		candles, err := services.ReadCandles(filepath.Join(args.WarmUpDir, fmt.Sprintf("%s.csv", symbol)))
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warnf("failed to load warm-up history for %s: %v", symbol, err)
			}
		} else {
			for _, candle := range candles {
				s.push(candle.Close)
			}
		}

		state[symbol] = s
	}

	log.Infof("consumer %s tracking %d symbols for %d strategies", args.RunID, len(args.Symbols), len(args.Plan.Strategies))

	bars := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var bar models.BarMessage
		if err := receiver.Receive(&bar); err != nil {
			if errors.Is(err, io.EOF) {
				log.Infof("consumer %s queue drained after %d bars", args.RunID, bars)
				return nil
			}
			return fmt.Errorf("RunConsumer: receive failed: %w", err)
		}

		bars++

		s, found := state[bar.Symbol]
		if !found {
			log.Warnf("received bar for unassigned symbol %s", bar.Symbol)
			continue
		}

		s.push(bar.Close)
		evaluateSymbol(bar, s)
	}
}

// evaluateSymbol flags bars that break out of the symbol's recent range.
// The actual strategy logic lives with the strategies themselves; this
// keeps the shard's rolling statistics warm and observable.
func evaluateSymbol(bar models.BarMessage, s *symbolState) {
	if len(s.closes) < 20 {
		return
	}

	mean, err := stats.Mean(s.closes)
	if err != nil {
		log.Warnf("failed to compute mean for %s: %v", bar.Symbol, err)
		return
	}

	stdDev, err := stats.StandardDeviation(s.closes)
	if err != nil {
		log.Warnf("failed to compute std dev for %s: %v", bar.Symbol, err)
		return
	}

	if stdDev > 0 && bar.Close > mean+2*stdDev {
		log.WithFields(log.Fields{
			"symbol": bar.Symbol,
			"close":  bar.Close,
			"mean":   mean,
			"stdDev": stdDev,
		}).Info("breakout above rolling range")
	}
}
