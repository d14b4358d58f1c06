package models

// TradierPositionDTO is one open position as returned by the broker's
// positions endpoint.
type TradierPositionDTO struct {
	CostBasis    float64 `json:"cost_basis"`
	DateAcquired string  `json:"date_acquired"`
	ID           int     `json:"id"`
	Quantity     float64 `json:"quantity"`
	Symbol       string  `json:"symbol"`
}
