package pythgo

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/iancoleman/strcase"

	"pythgo/lib/pyth"
)

const DISCRIMINATOR_SIZE = 8

// GetAccountFilter matches anchor accounts of the given type. The name may be
// given in any case, e.g. "price_update_v2".
func GetAccountFilter(accountName string) rpc.RPCFilter {
	hash := sha256.Sum256([]byte(fmt.Sprintf("account:%s", strcase.ToCamel(accountName))))
	hashCut := hash[0:DISCRIMINATOR_SIZE]
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: 0,
			Bytes:  hashCut[:],
		},
	}
}

func GetPriceUpdateFilter() rpc.RPCFilter {
	return GetAccountFilter("PriceUpdateV2")
}

// GetFullyVerifiedFilter matches updates whose verification level is Full.
func GetFullyVerifiedFilter() rpc.RPCFilter {
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: DISCRIMINATOR_SIZE + 32,
			Bytes:  []byte{pyth.VerificationKindFull},
		},
	}
}

// GetFeedFilter matches fully verified updates of feedId. Partial updates carry
// one more byte before the message and are not matched.
func GetFeedFilter(feedId pyth.FeedId) rpc.RPCFilter {
	return rpc.RPCFilter{
		Memcmp: &rpc.RPCFilterMemcmp{
			Offset: DISCRIMINATOR_SIZE + 32 + 1,
			Bytes:  feedId.Bytes(),
		},
	}
}
