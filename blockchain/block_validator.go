package blockchain

import (
	"fmt"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/blockchain/state"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/consensus"
)

// BlockValidator is responsible for validating candidate blocks against the
// latest block and the current ledger.
//
// BlockValidator implements Validator.
type BlockValidator struct {
	chain       consensus.ChainReader // Canonical block chain
	coordinator consensus.Coordinator // Validator coordination protocol
	state       *state.StateDB        // Ledger and pool to check transactions against
}

// NewBlockValidator returns a new block validator which is safe for re-use
func NewBlockValidator(chain consensus.ChainReader, coordinator consensus.Coordinator, stateDB *state.StateDB) *BlockValidator {
	return &BlockValidator{
		chain:       chain,
		coordinator: coordinator,
		state:       stateDB,
	}
}

// ValidateBlock checks, in order and stopping at the first failure, that
// block links to the latest block, that its coordination transactions and
// signature are valid for the round and that every ordinary transaction
// passes the inclusion check. Failures wrap ErrBlockRejected.
func (v *BlockValidator) ValidateBlock(block *model.Block) error {
	latest := v.chain.LatestBlock()
	if block.ParentHash() != latest.Hash() {
		log.Warningf("Block %x rejected: parent hash mismatch. expected: %x, actual: %x",
			block.Hash(), latest.Hash(), block.ParentHash())
		return fmt.Errorf("%w: parent hash %x, want %x", ErrBlockRejected, block.ParentHash(), latest.Hash())
	}
	if block.Height() != latest.Height()+1 {
		log.Warningf("Block %x rejected: height mismatch. expected: %d, actual: %d",
			block.Hash(), latest.Height()+1, block.Height())
		return fmt.Errorf("%w: height %d, want %d", ErrBlockRejected, block.Height(), latest.Height()+1)
	}
	if err := v.coordinator.ValidateBlockStructure(block); err != nil {
		log.Warningf("Block %x rejected: %v", block.Hash(), err)
		return fmt.Errorf("%w: %v", ErrBlockRejected, err)
	}
	txs := block.Transactions()
	seen := make(map[common.Hash]struct{}, len(txs))
	for i, tx := range txs {
		if _, dup := seen[tx.Hash()]; dup {
			log.Warningf("Block %x rejected: tx %d [%x] included twice", block.Hash(), i, tx.Hash())
			return fmt.Errorf("%w: duplicate tx %x", ErrBlockRejected, tx.Hash())
		}
		seen[tx.Hash()] = struct{}{}
	}
	if i := v.state.ValidateTxsForBlock(txs); i >= 0 {
		log.Warningf("Block %x rejected: tx %d [%x] failed inclusion check", block.Hash(), i, txs[i].Hash())
		return fmt.Errorf("%w: invalid tx %x", ErrBlockRejected, txs[i].Hash())
	}
	return nil
}

// ValidateNewBlock reports whether block may be voted on.
func (v *BlockValidator) ValidateNewBlock(block *model.Block) bool {
	if err := v.ValidateBlock(block); err != nil {
		return false
	}
	log.Debugf("Block %x valid. height: %d, txs: %d", block.Hash(), block.Height(), len(block.Transactions()))
	return true
}
