package utils

import (
	"math/big"
)

func MulX(x *big.Int, y ...*big.Int) *big.Int {
	z := new(big.Int).Set(x)
	for _, v := range y {
		z = z.Mul(z, v)
	}
	return z
}

// DivX is Euclidean division, so negative dividends round down.
func DivX(x *big.Int, y ...*big.Int) *big.Int {
	z := new(big.Int).Set(x)
	for _, v := range y {
		z = z.Div(z, v)
	}
	return z
}

func PowX(x, y *big.Int) *big.Int {
	z := new(big.Int).Set(x)
	return z.Exp(z, y, nil)
}

func BigUInt64(x uint64) *big.Int {
	return new(big.Int).SetUint64(x)
}

func BN[T int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32](x T) *big.Int {
	return big.NewInt(int64(x))
}
