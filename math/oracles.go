package math

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	oracles "pythgo/oracles/types"
	"pythgo/utils"
)

// PRICE_PRECISION_EXP is the fixed exponent prices are normalised to.
const PRICE_PRECISION_EXP = int32(-6)

var PRICE_PRECISION = utils.BN(1_000_000)

var ErrZeroPrice = errors.New("zero price")

// ConvertPythPrice rescales price from exponent to targetExponent. Scaling
// down floors.
func ConvertPythPrice(price *big.Int, exponent int32, targetExponent int32) *big.Int {
	diff := int64(exponent) - int64(targetExponent)
	if diff >= 0 {
		return utils.MulX(price, utils.PowX(utils.BN(10), utils.BN(diff)))
	}
	return utils.DivX(price, utils.PowX(utils.BN(10), utils.BN(-diff)))
}

// GetOraclePrice is the point's price at PRICE_PRECISION.
func GetOraclePrice(point *oracles.PricePoint) *big.Int {
	return ConvertPythPrice(utils.BN(point.Price), point.Exponent, PRICE_PRECISION_EXP)
}

// GetOracleConfidence is the point's confidence at PRICE_PRECISION.
func GetOracleConfidence(point *oracles.PricePoint) *big.Int {
	return ConvertPythPrice(utils.BigUInt64(point.Conf), point.Exponent, PRICE_PRECISION_EXP)
}

// ConfidenceRatio is conf / |price|. Both share the exponent so it cancels.
func ConfidenceRatio(point *oracles.PricePoint) (decimal.Decimal, error) {
	if point.Price == 0 {
		return decimal.Zero, ErrZeroPrice
	}
	conf := decimal.NewFromBigInt(utils.BigUInt64(point.Conf), 0)
	price := decimal.NewFromInt(point.Price).Abs()
	return conf.DivRound(price, 12), nil
}

// IsConfidenceTooLarge reports whether the confidence band is wider than
// maxRatio of the price. A zero price is always too uncertain.
func IsConfidenceTooLarge(point *oracles.PricePoint, maxRatio decimal.Decimal) bool {
	ratio, err := ConfidenceRatio(point)
	if err != nil {
		return true
	}
	return ratio.GreaterThan(maxRatio)
}
