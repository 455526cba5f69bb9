package consumer

import (
	"encoding/binary"
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/text/format"
	"github.com/gagliardetto/treeout"

	"pythgo/lib/pyth"
)

// Sample is GetPrice with the feed id passed as a hex string argument.
type Sample struct {
	Id *string

	ProgramId   solana.PublicKey `bin:"-" borsh_skip:"true"`
	Payer       solana.PublicKey `bin:"-" borsh_skip:"true"`
	PriceUpdate solana.PublicKey `bin:"-" borsh_skip:"true"`

	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewSampleInstructionBuilder() *Sample {
	return &Sample{}
}

func (inst *Sample) SetId(id string) *Sample {
	inst.Id = &id
	return inst
}

func (inst *Sample) SetProgramId(programId solana.PublicKey) *Sample {
	inst.ProgramId = programId
	return inst
}

func (inst *Sample) SetPayer(payer solana.PublicKey) *Sample {
	inst.Payer = payer
	return inst
}

func (inst *Sample) SetPriceUpdate(priceUpdate solana.PublicKey) *Sample {
	inst.PriceUpdate = priceUpdate
	return inst
}

func (inst Sample) Build() *Instruction {
	inst.AccountMetaSlice = []*solana.AccountMeta{
		{
			PublicKey:  inst.Payer,
			IsSigner:   true,
			IsWritable: true,
		},
		{
			PublicKey:  inst.PriceUpdate,
			IsSigner:   false,
			IsWritable: false,
		},
	}
	return newInstruction(inst.ProgramId, inst)
}

func (inst Sample) ValidateAndBuild() (*Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

// Validate also checks that Id is a well formed feed id, so a bad id fails
// before a transaction is built.
func (inst *Sample) Validate() error {
	if inst.Id == nil {
		return errors.New("Id parameter is not set")
	}
	if _, err := pyth.DecodeFeedId(*inst.Id); err != nil {
		return err
	}
	if inst.ProgramId.IsZero() {
		return errors.New("ProgramId not set")
	}
	if inst.Payer.IsZero() {
		return errors.New("Payer not set")
	}
	if inst.PriceUpdate.IsZero() {
		return errors.New("PriceUpdate not set")
	}
	return nil
}

func (inst Sample) EncodeToTree(parent treeout.Branches) {
	parent.Child(format.Program(ProgramName, inst.ProgramId)).
		//
		ParentFunc(func(programBranch treeout.Branches) {
			programBranch.Child(format.Instruction("Sample")).
				//
				ParentFunc(func(instructionBranch treeout.Branches) {
					instructionBranch.Child("Params[len=1]").ParentFunc(func(paramsBranch treeout.Branches) {
						paramsBranch.Child(format.Param("Id", *inst.Id))
					})

					instructionBranch.Child("Accounts[len=2]").ParentFunc(func(accountsBranch treeout.Branches) {
						accountsBranch.Child(format.Meta("      payer", inst.AccountMetaSlice.Get(0)))
						accountsBranch.Child(format.Meta("priceUpdate", inst.AccountMetaSlice.Get(1)))
					})
				})
		})
}

func (inst Sample) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(SampleDiscriminator[:], false); err != nil {
		return err
	}
	// borsh string: u32 length then utf-8 bytes
	if err := encoder.WriteUint32(uint32(len(*inst.Id)), binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteBytes([]byte(*inst.Id), false)
}

func (inst *Sample) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	discriminator, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if [8]byte(discriminator) != SampleDiscriminator {
		return errors.New("not a sample instruction")
	}
	length, err := decoder.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	id, err := decoder.ReadNBytes(int(length))
	if err != nil {
		return err
	}
	inst.SetId(string(id))
	return nil
}

func NewSampleInstruction(
	id string,
	programId solana.PublicKey,
	payer solana.PublicKey,
	priceUpdate solana.PublicKey,
) *Sample {
	return NewSampleInstructionBuilder().
		SetId(id).
		SetProgramId(programId).
		SetPayer(payer).
		SetPriceUpdate(priceUpdate)
}
