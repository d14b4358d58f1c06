package services

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"daytrader/src/models"
	"daytrader/src/utils"
)

// PositionsClient fetches the broker's currently open positions, used to
// fold previously bought symbols back into the instrument universe.
type PositionsClient struct {
	URL         string
	BearerToken string
}

func (c *PositionsClient) FetchOpenPositions() ([]models.TradierPositionDTO, error) {
	client := http.Client{
		Timeout: 10 * time.Second,
	}

	req, err := http.NewRequest(http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("FetchOpenPositions: failed to create request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.BearerToken))

	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchOpenPositions: failed to fetch positions: %w", err)
	}

	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FetchOpenPositions: failed to fetch positions: %s", res.Status)
	}

	bytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("FetchOpenPositions: failed to read response body: %w", err)
	}

	positions, err := utils.ParseTradierResponse[models.TradierPositionDTO](bytes)
	if err != nil {
		return nil, fmt.Errorf("FetchOpenPositions: failed to parse response: %w", err)
	}

	return positions, nil
}
