package blockchain

import (
	"fmt"
	"sync"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	lru "github.com/hashicorp/golang-lru"
)

// BlockStatus is the consensus status of a block known to the node.
type BlockStatus int

const (
	StatusUnknown BlockStatus = iota
	StatusProcessing
	StatusRejected
	StatusAccepted
)

func (s BlockStatus) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusRejected:
		return "rejected"
	case StatusAccepted:
		return "accepted"
	}
	return "unknown"
}

const decidedCacheLimit = 1024

// ChainTip tracks the blocks under consensus and the block the node
// currently prefers to build on.
type ChainTip struct {
	chain *BlockChain

	mu         sync.RWMutex
	preferred  common.Hash
	hasPref    bool
	processing map[common.Hash]*model.Block
	decided    *lru.Cache // hash -> BlockStatus
}

// NewChainTip creates a tip tracker on top of chain. There is no preference
// until SetPreference is called.
func NewChainTip(chain *BlockChain) *ChainTip {
	decided, _ := lru.New(decidedCacheLimit)
	return &ChainTip{
		chain:      chain,
		processing: make(map[common.Hash]*model.Block),
		decided:    decided,
	}
}

// SetPreference records hash as the block to build on.
func (t *ChainTip) SetPreference(hash common.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.preferred, t.hasPref = hash, true
	log.Debugf("Preference set to %x", hash)
}

// PreferredBlockHash returns the preferred block, false if none is set.
func (t *ChainTip) PreferredBlockHash() (common.Hash, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.preferred, t.hasPref
}

// ProcessBlock registers a verified block as undecided.
func (t *ChainTip) ProcessBlock(block *model.Block) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processing[block.Hash()] = block
	log.Debugf("Processing block. height: %d, hash: %x", block.Height(), block.Hash())
}

// IsProcessing reports whether hash is undecided.
func (t *ChainTip) IsProcessing(hash common.Hash) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.processing[hash]
	return ok
}

// Accept marks an undecided block as accepted and returns it. Applying the
// block is up to the caller.
func (t *ChainTip) Accept(hash common.Hash) (*model.Block, error) {
	return t.decide(hash, StatusAccepted)
}

// Reject marks an undecided block as rejected and drops it.
func (t *ChainTip) Reject(hash common.Hash) (*model.Block, error) {
	return t.decide(hash, StatusRejected)
}

func (t *ChainTip) decide(hash common.Hash, status BlockStatus) (*model.Block, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	block, ok := t.processing[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %x is not processing", ErrUnknownBlock, hash)
	}
	delete(t.processing, hash)
	t.decided.Add(hash, status)
	log.Infof("Block %s. height: %d, hash: %x", status, block.Height(), hash)
	return block, nil
}

// BlockStatus returns the consensus status of hash.
func (t *ChainTip) BlockStatus(hash common.Hash) BlockStatus {
	t.mu.RLock()
	_, processing := t.processing[hash]
	status, decided := t.decided.Get(hash)
	t.mu.RUnlock()

	switch {
	case processing:
		return StatusProcessing
	case decided:
		return status.(BlockStatus)
	case t.chain.HasBlock(hash):
		return StatusAccepted
	}
	return StatusUnknown
}

// GetBlock returns an undecided or canonical block by hash.
func (t *ChainTip) GetBlock(hash common.Hash) *model.Block {
	t.mu.RLock()
	block, ok := t.processing[hash]
	t.mu.RUnlock()
	if ok {
		return block
	}
	return t.chain.GetBlockByHash(hash)
}
