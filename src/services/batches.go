package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
)

// BatchRecord describes one replayable historical batch in the catalog.
type BatchRecord struct {
	ID        string `csv:"id"`
	Symbol    string `csv:"symbol"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
	File      string `csv:"file"`
}

// LoadBatchCatalog reads the batch catalog CSV. Candle file paths are
// resolved relative to the catalog's directory.
func LoadBatchCatalog(path string) ([]BatchRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadBatchCatalog: failed to open %s: %w", path, err)
	}
	defer f.Close()

	var batches []BatchRecord
	if err := gocsv.UnmarshalFile(f, &batches); err != nil {
		return nil, fmt.Errorf("LoadBatchCatalog: failed to unmarshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range batches {
		if !filepath.IsAbs(batches[i].File) {
			batches[i].File = filepath.Join(dir, batches[i].File)
		}
	}

	return batches, nil
}

func PrintBatchList(w io.Writer, batches []BatchRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Symbol", "Start", "End", "File"})

	for _, b := range batches {
		table.Append([]string{b.ID, b.Symbol, b.StartDate, b.EndDate, b.File})
	}

	table.Render()
}

type BatchResult struct {
	BatchID     string
	Symbol      string
	Candles     int
	Picks       int
	MeanClose   float64
	StdDevClose float64
}

// BacktestRunner replays catalog batches through the configured
// scanners. Strict mode fails the replay on data gaps that a live
// session would simply skip over.
type BacktestRunner struct {
	Plan         models.TradingPlan
	Strict       bool
	DebugSymbols []string
}

func (r *BacktestRunner) Replay(batch BatchRecord) (BatchResult, error) {
	if len(r.DebugSymbols) > 0 && !contains(r.DebugSymbols, batch.Symbol) {
		log.Debugf("skipping batch %s: symbol %s not under debug focus", batch.ID, batch.Symbol)
		return BatchResult{BatchID: batch.ID, Symbol: batch.Symbol}, nil
	}

	candles, err := ReadCandles(batch.File)
	if err != nil {
		return BatchResult{}, fmt.Errorf("Replay: failed to read batch %s: %w", batch.ID, err)
	}

	if len(candles) == 0 {
		if r.Strict {
			return BatchResult{}, fmt.Errorf("Replay: batch %s has no candles", batch.ID)
		}
		log.Warnf("batch %s has no candles", batch.ID)
		return BatchResult{BatchID: batch.ID, Symbol: batch.Symbol}, nil
	}

	closes := make([]float64, 0, len(candles))
	picks := 0
	prevClose := 0.0
	for _, candle := range candles {
		if r.Strict && candle.TimestampMs == 0 {
			return BatchResult{}, fmt.Errorf("Replay: batch %s has a candle without a timestamp", batch.ID)
		}

		for _, scanner := range r.Plan.Scanners {
			if scanner.Matches(prevClose, candle.Close, candle.Volume) {
				picks++
				break
			}
		}

		closes = append(closes, candle.Close)
		prevClose = candle.Close
	}

	mean, err := stats.Mean(closes)
	if err != nil {
		return BatchResult{}, fmt.Errorf("Replay: batch %s: %w", batch.ID, err)
	}

	stdDev, err := stats.StandardDeviation(closes)
	if err != nil {
		return BatchResult{}, fmt.Errorf("Replay: batch %s: %w", batch.ID, err)
	}

	return BatchResult{
		BatchID:     batch.ID,
		Symbol:      batch.Symbol,
		Candles:     len(candles),
		Picks:       picks,
		MeanClose:   mean,
		StdDevClose: stdDev,
	}, nil
}

func PrintBatchResults(w io.Writer, results []BatchResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Symbol", "Candles", "Picks", "Mean Close", "Std Dev"})

	for _, r := range results {
		table.Append([]string{
			r.BatchID,
			r.Symbol,
			strconv.Itoa(r.Candles),
			strconv.Itoa(r.Picks),
			fmt.Sprintf("%.2f", r.MeanClose),
			fmt.Sprintf("%.2f", r.StdDevClose),
		})
	}

	table.Render()
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
