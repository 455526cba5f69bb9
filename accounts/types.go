package accounts

import (
	"github.com/gagliardetto/solana-go"
)

type Buffer []byte

type BufferAndSlot struct {
	Buffer Buffer
	Slot   uint64
}

type DataAndSlot[T any] struct {
	Data   T
	Slot   uint64
	Pubkey solana.PublicKey
}

// FetchResult is one account of a batched fetch. Err is set when the account is
// missing or cannot be decoded.
type FetchResult[T any] struct {
	DataAndSlot[T]
	Err error
}
