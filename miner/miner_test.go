package miner

import (
	"sync"
	"testing"
	"time"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/stretchr/testify/assert"
)

// soloCoordinator runs rounds without a quorum.
type soloCoordinator struct{}

func (soloCoordinator) MinValidators() int                         { return 0 }
func (soloCoordinator) ValidatorOrder() []common.Address           { return []common.Address{{1}} }
func (soloCoordinator) TxKind(*model.Transaction) consensus.TxKind { return consensus.KindOther }
func (soloCoordinator) AddCoordinationTx(*model.Transaction) error { return nil }
func (soloCoordinator) ValidateBlockStructure(*model.Block) error  { return nil }
func (soloCoordinator) FinalizeAndSign(*model.Block) error         { return nil }
func (soloCoordinator) ProcessBlock(*model.Block)                  {}
func (soloCoordinator) PendingCoordinationTxs() map[common.Hash]*model.Transaction {
	return nil
}

type testBackend struct {
	mu     sync.Mutex
	blocks []*model.Block
	got    chan struct{}
}

func (b *testBackend) ProcessNewBlock(block *model.Block) error {
	b.mu.Lock()
	b.blocks = append(b.blocks, block)
	b.mu.Unlock()
	select {
	case b.got <- struct{}{}:
	default:
	}
	return nil
}

func TestMinerStartStop(t *testing.T) {
	chain := newTestChain()
	builder := NewBuilder(fastMiner, &testPreference{hash: chain.LatestBlock().Hash(), ok: true}, chain, testPending(nil), soloCoordinator{})
	backend := &testBackend{got: make(chan struct{}, 1)}
	miner := New(builder, backend, 10*time.Millisecond)

	assert.False(t, miner.Mining())
	miner.Start()
	miner.Start()
	assert.True(t, miner.Mining())

	select {
	case <-backend.got:
	case <-time.After(5 * time.Second):
		t.Fatal("no block produced")
	}
	miner.Stop()
	miner.Stop()
	assert.False(t, miner.Mining())

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.NotEmpty(t, backend.blocks)
	assert.Equal(t, uint64(1), backend.blocks[0].Height())
}

func TestMinerIdlesWithoutPreference(t *testing.T) {
	chain := newTestChain()
	builder := NewBuilder(fastMiner, &testPreference{}, chain, testPending(nil), soloCoordinator{})
	backend := &testBackend{got: make(chan struct{}, 1)}
	miner := New(builder, backend, 5*time.Millisecond)

	miner.Start()
	time.Sleep(30 * time.Millisecond)
	miner.Stop()
	assert.Empty(t, backend.blocks)
}
