package consumer

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/text"
	"github.com/gagliardetto/solana-go/text/format"
	"github.com/gagliardetto/treeout"
)

const ProgramName = "PriceConsumer"

const (
	Instruction_GetPrice = "get_price"
	Instruction_Sample   = "sample"
)

// InstructionDiscriminator is the anchor selector of a global instruction.
func InstructionDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("global:" + name))
	copy(d[:], sum[:8])
	return d
}

var (
	GetPriceDiscriminator = InstructionDiscriminator(Instruction_GetPrice)
	SampleDiscriminator   = InstructionDiscriminator(Instruction_Sample)
)

// Instruction is a built consumer program instruction. The consumer programs are
// deployed at several addresses, so the program id travels with the instruction.
type Instruction struct {
	bin.BaseVariant
	programId solana.PublicKey
}

func (inst *Instruction) ProgramID() solana.PublicKey {
	return inst.programId
}

func (inst *Instruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(inst.Impl); err != nil {
		return nil, fmt.Errorf("unable to encode instruction: %w", err)
	}
	return buf.Bytes(), nil
}

func (inst *Instruction) TextEncode(encoder *text.Encoder, option *text.Option) error {
	return encoder.Encode(inst.Impl, option)
}

func (inst *Instruction) EncodeToTree(parent treeout.Branches) {
	if enToTree, ok := inst.Impl.(text.EncodableToTree); ok {
		enToTree.EncodeToTree(parent)
	} else {
		parent.Child(format.Program(ProgramName, inst.programId))
	}
}

func (inst *Instruction) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.Encode(inst.Impl)
}

func newInstruction(programId solana.PublicKey, impl interface{}) *Instruction {
	return &Instruction{
		BaseVariant: bin.BaseVariant{
			Impl:   impl,
			TypeID: bin.NoTypeIDDefaultID,
		},
		programId: programId,
	}
}
