package consumer

import (
	"errors"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/text/format"
	"github.com/gagliardetto/treeout"
)

// GetPrice asks a consumer program to read its configured feed from a price
// update account and log it.
type GetPrice struct {
	ProgramId   solana.PublicKey `bin:"-" borsh_skip:"true"`
	Payer       solana.PublicKey `bin:"-" borsh_skip:"true"`
	PriceUpdate solana.PublicKey `bin:"-" borsh_skip:"true"`

	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func NewGetPriceInstructionBuilder() *GetPrice {
	return &GetPrice{}
}

func (inst *GetPrice) SetProgramId(programId solana.PublicKey) *GetPrice {
	inst.ProgramId = programId
	return inst
}

func (inst *GetPrice) SetPayer(payer solana.PublicKey) *GetPrice {
	inst.Payer = payer
	return inst
}

func (inst *GetPrice) SetPriceUpdate(priceUpdate solana.PublicKey) *GetPrice {
	inst.PriceUpdate = priceUpdate
	return inst
}

func (inst GetPrice) Build() *Instruction {
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

func (inst GetPrice) ValidateAndBuild() (*Instruction, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst.Build(), nil
}

func (inst *GetPrice) Validate() error {
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

func (inst GetPrice) EncodeToTree(parent treeout.Branches) {
	parent.Child(format.Program(ProgramName, inst.ProgramId)).
		//
		ParentFunc(func(programBranch treeout.Branches) {
			programBranch.Child(format.Instruction("GetPrice")).
				//
				ParentFunc(func(instructionBranch treeout.Branches) {
					instructionBranch.Child("Params[len=0]").ParentFunc(func(paramsBranch treeout.Branches) {})

					instructionBranch.Child("Accounts[len=2]").ParentFunc(func(accountsBranch treeout.Branches) {
						accountsBranch.Child(format.Meta("      payer", inst.AccountMetaSlice.Get(0)))
						accountsBranch.Child(format.Meta("priceUpdate", inst.AccountMetaSlice.Get(1)))
					})
				})
		})
}

func (inst GetPrice) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteBytes(GetPriceDiscriminator[:], false)
}

func NewGetPriceInstruction(
	programId solana.PublicKey,
	payer solana.PublicKey,
	priceUpdate solana.PublicKey,
) *GetPrice {
	return NewGetPriceInstructionBuilder().
		SetProgramId(programId).
		SetPayer(payer).
		SetPriceUpdate(priceUpdate)
}
