package b3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2.850,00", "2850"},
		{"28,50", "28.5"},
		{"R$ 1.234.567,89", "1234567.89"},
		{"0,01", "0.01"},
		{"10", "10"},
	}
	for _, tt := range tests {
		d, err := parseMoney(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, d.String(), "input %q", tt.input)
	}

	_, err := parseMoney("abc")
	assert.Error(t, err)
}

func TestParseQuantity(t *testing.T) {
	q, err := parseQuantity("1.000")
	require.NoError(t, err)
	assert.Equal(t, 1000, q)

	q, err = parseQuantity("100")
	require.NoError(t, err)
	assert.Equal(t, 100, q)

	_, err = parseQuantity("10,5")
	assert.Error(t, err)
}

func TestParseNoteDate(t *testing.T) {
	iso, err := parseNoteDate("15/03/2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", iso)

	_, err = parseNoteDate("31/02/2024")
	assert.Error(t, err)
	_, err = parseNoteDate("2024-03-15")
	assert.Error(t, err)
}
