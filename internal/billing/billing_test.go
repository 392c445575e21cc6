package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsToAmount(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"whole dollars", 10000, "100.00"},
		{"with fraction", 10050, "100.50"},
		{"single cent", 1, "0.01"},
		{"zero", 0, "0.00"},
		{"large peso amount", 10000000, "100000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CentsToAmount(tt.cents))
		})
	}
}

func TestAmountToCents(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    int64
		wantErr bool
	}{
		{"two decimals", "100.50", 10050, false},
		{"no decimals", "100", 10000, false},
		{"one decimal", "99.5", 9950, false},
		{"not a number", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountToCents(tt.amount)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
