package mongo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal128RoundTrip(t *testing.T) {
	tests := []string{"0", "10.00", "5.50", "25.5", "1999.99", "-3.25", "0.01"}
	for _, tt := range tests {
		t.Run(tt, func(t *testing.T) {
			in := decimal.RequireFromString(tt)

			stored, err := toDecimal128(in)
			require.NoError(t, err)

			out, err := fromDecimal128(stored)
			require.NoError(t, err)
			assert.True(t, in.Equal(out), "stored %s, got back %s", in, out)
		})
	}
}
