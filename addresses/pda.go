package addresses

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"pythgo/lib/pyth"
)

// GetPriceFeedAccountPublicKeyAndNonce derives the push oracle account that holds the
// latest update of feedId in shard shardId.
func GetPriceFeedAccountPublicKeyAndNonce(
	shardId uint16,
	feedId pyth.FeedId,
	pushOracleProgramIds ...solana.PublicKey,
) (solana.PublicKey, uint8) {
	programId := pyth.PushOracleProgramId
	if len(pushOracleProgramIds) > 0 && !pushOracleProgramIds[0].IsZero() {
		programId = pushOracleProgramIds[0]
	}
	seed := make([]byte, 2)
	binary.LittleEndian.PutUint16(seed, shardId)
	address, bumpSeed, err := solana.FindProgramAddress(
		[][]byte{
			seed,
			feedId.Bytes(),
		},
		programId,
	)
	if err != nil {
		return solana.PublicKey{}, 0
	}
	return address, bumpSeed
}

func GetPriceFeedAccountPublicKey(
	shardId uint16,
	feedId pyth.FeedId,
	pushOracleProgramIds ...solana.PublicKey,
) solana.PublicKey {
	address, _ := GetPriceFeedAccountPublicKeyAndNonce(shardId, feedId, pushOracleProgramIds...)
	return address
}
