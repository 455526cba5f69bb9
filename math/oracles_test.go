package math

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oracles "pythgo/oracles/types"
)

func TestConvertPythPrice(t *testing.T) {
	cases := []struct {
		price    int64
		exponent int32
		target   int32
		want     int64
	}{
		{6512345678900, -8, -6, 65123456789},
		{15012345678, -8, -6, 150123456},
		{42, -2, -6, 420000},
		{-15012345678, -8, -6, -150123457},
		{7, 0, 0, 7},
	}
	for _, c := range cases {
		got := ConvertPythPrice(big.NewInt(c.price), c.exponent, c.target)
		assert.Equal(t, c.want, got.Int64(), "%d * 10^%d", c.price, c.exponent)
	}
}

func TestOraclePrecision(t *testing.T) {
	point := &oracles.PricePoint{Price: 6512345678900, Conf: 2345678, Exponent: -8}
	assert.Equal(t, int64(65123456789), GetOraclePrice(point).Int64())
	assert.Equal(t, int64(23456), GetOracleConfidence(point).Int64())
}

func TestConfidenceRatio(t *testing.T) {
	point := &oracles.PricePoint{Price: -200, Conf: 3, Exponent: -2}
	ratio, err := ConfidenceRatio(point)
	require.NoError(t, err)
	assert.True(t, ratio.Equal(decimal.RequireFromString("0.015")))
	assert.False(t, IsConfidenceTooLarge(point, decimal.RequireFromString("0.02")))
	assert.True(t, IsConfidenceTooLarge(point, decimal.RequireFromString("0.01")))

	_, err = ConfidenceRatio(&oracles.PricePoint{Conf: 1})
	assert.ErrorIs(t, err, ErrZeroPrice)
	assert.True(t, IsConfidenceTooLarge(&oracles.PricePoint{}, decimal.NewFromInt(1)))
}
