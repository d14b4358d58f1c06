package models

import "time"

// Calendar holds the trading window for a single session date.
type Calendar struct {
	Date        string
	MarketOpen  time.Time
	MarketClose time.Time
}

func (c *Calendar) IsBetweenMarketHours(t time.Time) bool {
	return (t.Equal(c.MarketOpen) || t.After(c.MarketOpen)) && t.Before(c.MarketClose)
}

// MarketCalendar is the Tradier market calendar response for one month.
type MarketCalendar struct {
	Calendar struct {
		Month int `json:"month"`
		Year  int `json:"year"`
		Days  struct {
			Day []MarketCalendarDay `json:"day"`
		} `json:"days"`
	} `json:"calendar"`
}

type MarketCalendarDay struct {
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Premarket   struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"premarket"`
	Open struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"open"`
	Postmarket struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"postmarket"`
}
