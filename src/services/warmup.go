package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	polygon "github.com/polygon-io/client-go/rest"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
)

// WarmUpService fetches recent minute history for the instrument
// universe before live handling begins and persists it to a per-run
// directory, one CSV per symbol. Consumers read their shard's files back
// at startup.
type WarmUpService struct {
	Client   *polygon.Client
	Lookback time.Duration
}

func NewWarmUpService(apiKey string) *WarmUpService {
	return &WarmUpService{
		Client:   polygon.New(apiKey),
		Lookback: 24 * time.Hour,
	}
}

// WarmUp fetches up to maxCandles minute bars per symbol and writes them
// under outDir. The returned map's key set is the finalized instrument
// universe: symbols with no retrievable history are dropped from the
// session.
func (s *WarmUpService) WarmUp(ctx context.Context, symbols []string, maxCandles int, outDir string) (map[string]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("WarmUp: failed to create %s: %w", outDir, err)
	}

	now := time.Now().UTC()
	from := now.Add(-s.Lookback)

	histories := make(map[string]string)
	for _, symbol := range symbols {
		candles, err := s.fetchMinuteBars(ctx, symbol, from, now, maxCandles)
		if err != nil {
			return nil, fmt.Errorf("WarmUp: failed to fetch history for %s: %w", symbol, err)
		}

		if len(candles) == 0 {
			log.Warnf("no minute history for %s, dropping from universe", symbol)
			continue
		}

		path := filepath.Join(outDir, fmt.Sprintf("%s.csv", symbol))
		if err := writeCandles(path, candles); err != nil {
			return nil, fmt.Errorf("WarmUp: failed to persist history for %s: %w", symbol, err)
		}

		histories[symbol] = path
	}

	log.Infof("warmed up %d of %d symbols", len(histories), len(symbols))

	return histories, nil
}

func (s *WarmUpService) fetchMinuteBars(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.WarmUpCandle, error) {
	params := polygonmodels.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   polygonmodels.Minute,
		From:       polygonmodels.Millis(from),
		To:         polygonmodels.Millis(to),
	}.WithOrder(polygonmodels.Asc).WithAdjusted(true).WithLimit(limit)

	iter := s.Client.ListAggs(ctx, params)

	var candles []models.WarmUpCandle
	for iter.Next() {
		item := iter.Item()
		candles = append(candles, models.WarmUpCandle{
			TimestampMs: time.Time(item.Timestamp).UnixMilli(),
			Open:        item.Open,
			High:        item.High,
			Low:         item.Low,
			Close:       item.Close,
			Volume:      item.Volume,
			VWAP:        item.VWAP,
		})

		if limit > 0 && len(candles) >= limit {
			break
		}
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return candles, nil
}

func writeCandles(path string, candles []models.WarmUpCandle) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gocsv.MarshalFile(&candles, f)
}

// ReadCandles loads one symbol's warm-up history back from its CSV.
func ReadCandles(path string) ([]models.WarmUpCandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadCandles: failed to open %s: %w", path, err)
	}
	defer f.Close()

	var candles []models.WarmUpCandle
	if err := gocsv.UnmarshalFile(f, &candles); err != nil {
		return nil, fmt.Errorf("ReadCandles: failed to unmarshal %s: %w", path, err)
	}

	return candles, nil
}
