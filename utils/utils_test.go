package utils

import (
	"math/big"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBig(t *testing.T) {
	assert.Equal(t, big.NewInt(1200), MulX(BN(12), BN(10), BN(10)))
	assert.Equal(t, big.NewInt(-3), DivX(BN(-25), BN(10)))
	assert.Equal(t, big.NewInt(1000), PowX(BN(10), BN(3)))
	assert.Equal(t, "18446744073709551615", BigUInt64(^uint64(0)).String())
}

func TestMaps(t *testing.T) {
	m := map[string]int{"a": 1, "b": 2}
	keys := MapKeys(m)
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.ElementsMatch(t, []int{1, 2}, MapValues(m))
	assert.Contains(t, keys, RandomElement(keys))
	assert.Equal(t, 3, TT(true, 3, 4))
	assert.Equal(t, 7, *NewPtr(7))
	assert.Len(t, GenerateIdentity(), 36)
}
