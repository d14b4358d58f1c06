package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SymbolAssignment maps each instrument symbol to the worker shard that
// owns it. The mapping is computed once during partitioning and treated
// as read-only afterwards.
type SymbolAssignment map[string]int

// Encode renders the assignment as "AAA=0,BBB=1" with symbols sorted, so
// it can be handed to a child process as a single flag value.
func (a SymbolAssignment) Encode() string {
	symbols := make([]string, 0, len(a))
	for symbol := range a {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	pairs := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		pairs = append(pairs, fmt.Sprintf("%s=%d", symbol, a[symbol]))
	}

	return strings.Join(pairs, ",")
}

func ParseSymbolAssignment(s string) (SymbolAssignment, error) {
	assignment := make(SymbolAssignment)
	if s == "" {
		return assignment, nil
	}

	for _, pair := range strings.Split(s, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("ParseSymbolAssignment: malformed pair %q", pair)
		}

		shard, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("ParseSymbolAssignment: invalid shard in %q: %w", pair, err)
		}

		assignment[parts[0]] = shard
	}

	return assignment, nil
}
