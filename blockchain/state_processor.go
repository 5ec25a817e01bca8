package blockchain

import (
	"errors"
	"fmt"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/blockchain/state"
	"github.com/entropyio/go-statecore/consensus"
)

// StateProcessor is a basic Processor, which takes care of transitioning
// state from one block to the next.
//
// StateProcessor implements Processor.
type StateProcessor struct {
	chain       consensus.ChainWriter // Canonical block chain
	coordinator consensus.Coordinator // Notified once a block landed
	contracts   ContractCaller        // Contract engine hook
	state       *state.StateDB
}

// NewStateProcessor initialises a new StateProcessor. A nil contracts
// argument means no address is a contract.
func NewStateProcessor(chain consensus.ChainWriter, coordinator consensus.Coordinator, contracts ContractCaller, stateDB *state.StateDB) *StateProcessor {
	if contracts == nil {
		contracts = NoContracts{}
	}
	return &StateProcessor{
		chain:       chain,
		coordinator: coordinator,
		contracts:   contracts,
		state:       stateDB,
	}
}

// Process applies every ordinary transaction of block in order, appends the
// block to the chain and clears the whole pool, all under the ledger's
// exclusive lock. Readers observe either none or all of the block. If any
// step fails nothing is committed.
func (p *StateProcessor) Process(block *model.Block) error {
	txs := block.Transactions()
	log.Debugf("Process input: height=%d, hash=%x, txs=%d", block.Height(), block.Hash(), len(txs))

	err := p.state.Update(func(w *state.Writer) error {
		for i, tx := range txs {
			if err := w.ApplyTransaction(tx); err != nil {
				return fmt.Errorf("could not apply tx %d [%v]: %w", i, tx.Hash().Hex(), err)
			}
			if p.contracts.IsContract(tx.To()) {
				if err := p.contracts.ApplyContractCall(tx); err != nil {
					return fmt.Errorf("could not apply contract call %d [%v]: %w", i, tx.Hash().Hex(), err)
				}
			}
		}
		if err := p.chain.Append(block); err != nil {
			return err
		}
		w.ClearPool()
		return nil
	})
	if err != nil {
		if errors.Is(err, state.ErrStateInvariant) {
			log.Criticalf("Block %x breaks the ledger: %v", block.Hash(), err)
		} else {
			log.Errorf("Failed to process block %x: %v", block.Hash(), err)
		}
		return err
	}
	p.coordinator.ProcessBlock(block)

	log.Debugf("Process output: height=%d, hash=%x, pool=%d", block.Height(), block.Hash(), p.state.PoolSize())
	return nil
}
