package utils

import (
	"encoding/json"
	"fmt"
)

// ParseTradierResponse unwraps the single-key envelope Tradier wraps
// around every payload, e.g. {"positions":{"position":[...]}}. A literal
// "null" body means an empty result set, and a single object is accepted
// where a list would normally appear.
func ParseTradierResponse[T any](response []byte) ([]T, error) {
	header := make(map[string]json.RawMessage)

	if err := json.Unmarshal(response, &header); err != nil {
		return nil, fmt.Errorf("ParseTradierResponse(): failed to unmarshal header in response: %w", err)
	}

	if len(header) != 1 {
		return nil, fmt.Errorf("ParseTradierResponse(): expected 1 key in header, got %v: %v", len(header), header)
	}

	var outer json.RawMessage
	for _, v := range header {
		outer = v
	}

	if string(outer) == "\"null\"" || string(outer) == "null" {
		return []T{}, nil
	}

	data := make(map[string]json.RawMessage)
	if err := json.Unmarshal(outer, &data); err != nil {
		return nil, fmt.Errorf("ParseTradierResponse(): failed to unmarshal data in response: %w", err)
	}

	if len(data) != 1 {
		return nil, fmt.Errorf("ParseTradierResponse(): expected 1 key in data, got %v: %v", len(data), data)
	}

	var inner json.RawMessage
	for _, v := range data {
		inner = v
	}

	var dtos []T
	var single T
	if err := json.Unmarshal(inner, &single); err == nil {
		dtos = append(dtos, single)
	} else if err := json.Unmarshal(inner, &dtos); err != nil {
		return nil, fmt.Errorf("ParseTradierResponse(): failed to unmarshal dtos in response: %w", err)
	}

	return dtos, nil
}
