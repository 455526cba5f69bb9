package pyth

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ReceiverProgramId owns every PriceUpdateV2 account.
var ReceiverProgramId = solana.MustPublicKeyFromBase58("rec5EKMGg6MxZYaMdyBfgwp4d5rB9T1VQH5pJv5LtFJ")

// PushOracleProgramId is the default Pyth push oracle deployment.
var PushOracleProgramId = solana.MustPublicKeyFromBase58("pythWSnswVUd12oZpeFP8e9CVaEqJg25g1Vtc2biRsT")

// PriceUpdateV2Discriminator prefixes every PriceUpdateV2 account.
var PriceUpdateV2Discriminator = AccountDiscriminator("PriceUpdateV2")

// PriceUpdateV2Len is the space allocated for the account; a fully verified update
// leaves the last byte of the verification level unused.
const PriceUpdateV2Len = 8 + 32 + 2 + 84 + 8

var (
	ErrNotPriceUpdate  = errors.New("not a price update account")
	ErrAccountTooShort = errors.New("account data too short")
)

// AccountDiscriminator is the 8-byte Anchor prefix of an account type.
func AccountDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:8])
	return d
}

// Verification levels of a posted update.
const (
	VerificationKindPartial = uint8(iota)
	VerificationKindFull
)

// VerificationLevel records how many guardian signatures were checked when the update
// was posted.
type VerificationLevel struct {
	Kind          uint8
	NumSignatures uint8 // only meaningful for partial verification
}

var VerificationFull = VerificationLevel{Kind: VerificationKindFull}

func VerificationPartial(numSignatures uint8) VerificationLevel {
	return VerificationLevel{Kind: VerificationKindPartial, NumSignatures: numSignatures}
}

func (v VerificationLevel) IsFull() bool {
	return v.Kind == VerificationKindFull
}

// GreaterOrEqual reports whether v is at least as strong as other.
func (v VerificationLevel) GreaterOrEqual(other VerificationLevel) bool {
	if v.IsFull() {
		return true
	}
	if other.IsFull() {
		return false
	}
	return v.NumSignatures >= other.NumSignatures
}

func (v VerificationLevel) String() string {
	if v.IsFull() {
		return "full"
	}
	return fmt.Sprintf("partial(%d)", v.NumSignatures)
}

func (v *VerificationLevel) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	kind, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	switch kind {
	case VerificationKindPartial:
		num, err := decoder.ReadUint8()
		if err != nil {
			return err
		}
		*v = VerificationPartial(num)
	case VerificationKindFull:
		*v = VerificationFull
	default:
		return fmt.Errorf("unknown verification level %d", kind)
	}
	return nil
}

func (v VerificationLevel) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(v.Kind); err != nil {
		return err
	}
	if v.IsFull() {
		return nil
	}
	return encoder.WriteUint8(v.NumSignatures)
}

// PriceFeedMessage is the price payload published for one feed.
type PriceFeedMessage struct {
	FeedId          FeedId
	Price           int64  // mantissa, scaled by 10^Exponent
	Conf            uint64 // confidence interval around Price
	Exponent        int32
	PublishTime     int64 // unix seconds
	PrevPublishTime int64
	EmaPrice        int64
	EmaConf         uint64
}

func (m *PriceFeedMessage) GetPrice() decimal.Decimal {
	return decimal.New(m.Price, m.Exponent)
}

func (m *PriceFeedMessage) GetConfidence() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(m.Conf), m.Exponent)
}

func (m *PriceFeedMessage) GetEmaPrice() decimal.Decimal {
	return decimal.New(m.EmaPrice, m.Exponent)
}

// HasChanged returns whether other carries a different publication.
func (m *PriceFeedMessage) HasChanged(other *PriceFeedMessage) bool {
	return (m == nil) != (other == nil) || m.FeedId != other.FeedId || m.PublishTime != other.PublishTime
}

func (m *PriceFeedMessage) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	raw, err := decoder.ReadNBytes(FeedIdLen)
	if err != nil {
		return err
	}
	copy(m.FeedId[:], raw)
	if m.Price, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if m.Conf, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if m.Exponent, err = decoder.ReadInt32(binary.LittleEndian); err != nil {
		return err
	}
	if m.PublishTime, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if m.PrevPublishTime, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if m.EmaPrice, err = decoder.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	m.EmaConf, err = decoder.ReadUint64(binary.LittleEndian)
	return err
}

func (m PriceFeedMessage) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(m.FeedId[:], false); err != nil {
		return err
	}
	if err := encoder.WriteInt64(m.Price, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint64(m.Conf, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteInt32(m.Exponent, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteInt64(m.PublishTime, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteInt64(m.PrevPublishTime, binary.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteInt64(m.EmaPrice, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(m.EmaConf, binary.LittleEndian)
}

// PriceUpdateV2 is a price update posted to Solana by the Pyth receiver program.
type PriceUpdateV2 struct {
	WriteAuthority    solana.PublicKey // may close or overwrite the account
	VerificationLevel VerificationLevel
	PriceMessage      PriceFeedMessage
	PostedSlot        uint64
}

// PriceMessageFor returns the message for feedId, if this account carries it.
func (p *PriceUpdateV2) PriceMessageFor(feedId FeedId) (*PriceFeedMessage, VerificationLevel, bool) {
	if p == nil || p.PriceMessage.FeedId != feedId {
		return nil, VerificationLevel{}, false
	}
	message := p.PriceMessage
	return &message, p.VerificationLevel, true
}

func (p *PriceUpdateV2) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	discriminator, err := decoder.ReadNBytes(8)
	if err != nil {
		return ErrAccountTooShort
	}
	if !bytes.Equal(discriminator, PriceUpdateV2Discriminator[:]) {
		return ErrNotPriceUpdate
	}
	authority, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return ErrAccountTooShort
	}
	p.WriteAuthority = solana.PublicKeyFromBytes(authority)
	if err = p.VerificationLevel.UnmarshalWithDecoder(decoder); err != nil {
		return err
	}
	if err = p.PriceMessage.UnmarshalWithDecoder(decoder); err != nil {
		return ErrAccountTooShort
	}
	if p.PostedSlot, err = decoder.ReadUint64(binary.LittleEndian); err != nil {
		return ErrAccountTooShort
	}
	return nil
}

func (p PriceUpdateV2) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(PriceUpdateV2Discriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(p.WriteAuthority[:], false); err != nil {
		return err
	}
	if err := p.VerificationLevel.MarshalWithEncoder(encoder); err != nil {
		return err
	}
	if err := p.PriceMessage.MarshalWithEncoder(encoder); err != nil {
		return err
	}
	return encoder.WriteUint64(p.PostedSlot, binary.LittleEndian)
}

// UnmarshalBinary decodes the account from the on-chain format.
func (p *PriceUpdateV2) UnmarshalBinary(buf []byte) error {
	return p.UnmarshalWithDecoder(bin.NewBorshDecoder(buf))
}

// MarshalBinary encodes the account in the on-chain format.
func (p *PriceUpdateV2) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := p.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsPriceUpdateV2 checks the discriminator only.
func IsPriceUpdateV2(data []byte) bool {
	return len(data) >= 8 && bytes.Equal(data[:8], PriceUpdateV2Discriminator[:])
}

// PriceUpdateEntry is a decoded price update account and its pubkey.
type PriceUpdateEntry struct {
	*PriceUpdateV2
	Pubkey solana.PublicKey `json:"pubkey"`
	Slot   uint64           `json:"slot"`
}
