package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TradingPlan is the immutable per-session configuration. It is loaded
// once at startup and passed by value to every component that needs it;
// nothing reads plan settings from ambient state.
type TradingPlan struct {
	Scanners   []ScannerYAML  `yaml:"scanners"`
	Strategies []StrategyYAML `yaml:"strategies"`

	// Workers overrides the load-based worker count estimate when > 0.
	Workers           int     `yaml:"workers"`
	ProcScalingFactor float64 `yaml:"procScalingFactor"`

	SkipExistingPositions bool `yaml:"skipExistingPositions"`
	BypassMarketSchedule  bool `yaml:"bypassMarketSchedule"`
	ScannersOnly          bool `yaml:"scannersOnly"`

	CoolDownMinutes int `yaml:"coolDownMinutes"`
	WarmUpCandles   int `yaml:"warmUpCandles"`
}

type ScannerYAML struct {
	Name          string   `yaml:"name"`
	Symbols       []string `yaml:"symbols"`
	MinVolume     float64  `yaml:"minVolume"`
	MinGapPercent float64  `yaml:"minGapPercent"`
}

// Matches reports whether a bar clears this scanner's volume and gap
// thresholds. prevClose of zero disables the gap check for the bar.
func (s ScannerYAML) Matches(prevClose, price, volume float64) bool {
	if volume < s.MinVolume {
		return false
	}

	if s.MinGapPercent > 0 && prevClose > 0 {
		gap := (price - prevClose) / prevClose * 100
		if gap < s.MinGapPercent {
			return false
		}
	}

	return true
}

type StrategyYAML struct {
	Name          string  `yaml:"name"`
	MaxPositions  int     `yaml:"maxPositions"`
	RiskPerTrade  float64 `yaml:"riskPerTrade"`
	StopLossRatio float64 `yaml:"stopLossRatio"`
}

func LoadTradingPlan(path string) (TradingPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TradingPlan{}, fmt.Errorf("LoadTradingPlan: failed to read %s: %w", path, err)
	}

	var plan TradingPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return TradingPlan{}, fmt.Errorf("LoadTradingPlan: failed to unmarshal %s: %w", path, err)
	}

	return plan, nil
}

func (p TradingPlan) Validate() error {
	if len(p.Scanners) == 0 {
		return fmt.Errorf("trading plan has no scanners configured")
	}

	if len(p.Strategies) == 0 {
		return fmt.Errorf("trading plan has no strategies configured")
	}

	return nil
}

// ScanSymbols returns the symbols named by the configured scanners, in
// first-seen order with duplicates removed.
func (p TradingPlan) ScanSymbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, scanner := range p.Scanners {
		for _, symbol := range scanner.Symbols {
			if !seen[symbol] {
				seen[symbol] = true
				symbols = append(symbols, symbol)
			}
		}
	}

	return symbols
}
