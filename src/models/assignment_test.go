package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolAssignment(t *testing.T) {
	t.Run("encode is sorted and stable", func(t *testing.T) {
		assignment := SymbolAssignment{"CCC": 0, "AAA": 1, "BBB": 2}
		assert.Equal(t, "AAA=1,BBB=2,CCC=0", assignment.Encode())
	})

	t.Run("round trip", func(t *testing.T) {
		assignment := SymbolAssignment{"AAA": 0, "BBB": 1, "CCC": 0}

		parsed, err := ParseSymbolAssignment(assignment.Encode())
		require.NoError(t, err)
		assert.Equal(t, assignment, parsed)
	})

	t.Run("empty string is an empty assignment", func(t *testing.T) {
		parsed, err := ParseSymbolAssignment("")
		require.NoError(t, err)
		assert.Empty(t, parsed)
	})

	t.Run("malformed pair rejected", func(t *testing.T) {
		_, err := ParseSymbolAssignment("AAA")
		assert.Error(t, err)

		_, err = ParseSymbolAssignment("AAA=x")
		assert.Error(t, err)
	})
}
