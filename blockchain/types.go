package blockchain

import (
	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
)

// Validator is an interface which defines the standard for block validation.
// Structure and signature checks are delegated to the coordinator.
type Validator interface {
	// ValidateBlock validates the given block against the latest block and
	// the current ledger.
	ValidateBlock(block *model.Block) error
}

// Processor is an interface for applying accepted blocks.
//
// Process applies the block's transfers to the ledger, appends it to the
// chain and clears the pool. It returns an error, and changes nothing, if
// any of the transfers could not be applied.
type Processor interface {
	Process(block *model.Block) error
}

// ContractCaller is the hook into a contract engine. Transfers whose
// recipient is a contract are still applied as native transfers, then
// forwarded here. Implementations run under the ledger lock and must not
// call back into the StateDB.
type ContractCaller interface {
	IsContract(addr common.Address) bool
	ApplyContractCall(tx *model.Transaction) error
}

// NoContracts is a ContractCaller without any contract.
type NoContracts struct{}

func (NoContracts) IsContract(common.Address) bool             { return false }
func (NoContracts) ApplyContractCall(*model.Transaction) error { return nil }
