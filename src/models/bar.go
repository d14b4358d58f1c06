package models

import "time"

// BarMessage is the unit of work delivered over shard queues and the
// scanner feed. The producer is the sole writer of a shard's queue and
// each consumer the sole reader of its own, so delivery is FIFO per
// shard with no ordering promise across shards.
type BarMessage struct {
	RunID     string    `json:"runId"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// WarmUpCandle is one historical minute bar persisted to the per-run
// warm-up directory, one CSV file per symbol.
type WarmUpCandle struct {
	TimestampMs int64   `csv:"timestamp_ms"`
	Open        float64 `csv:"open"`
	High        float64 `csv:"high"`
	Low         float64 `csv:"low"`
	Close       float64 `csv:"close"`
	Volume      float64 `csv:"volume"`
	VWAP        float64 `csv:"vwap"`
}

func (c WarmUpCandle) Time() time.Time {
	return time.UnixMilli(c.TimestampMs).UTC()
}
