package blockchain

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBlock(t *testing.T) {
	env := newTestEnv(t, "100", nil)
	latest := env.chain.LatestBlock()
	tx := env.transfer(0, testRecipient, 30, 0, 0)

	tests := []struct {
		name  string
		block func() *model.Block
		valid bool
	}{
		{"valid", func() *model.Block { return env.child(t, tx) }, true},
		{"empty", func() *model.Block { return env.child(t) }, true},
		{"unknown parent", func() *model.Block {
			return model.NewBlock(common.HexToHash("0xdead"), 1, latest.Height()+1)
		}, false},
		{"height mismatch", func() *model.Block {
			return model.NewBlock(latest.Hash(), 1, latest.Height()+2)
		}, false},
		{"overspend", func() *model.Block { return env.child(t, env.transfer(0, testRecipient, 101, 0, 0)) }, false},
		{"nonce gap", func() *model.Block { return env.child(t, env.transfer(1, testRecipient, 1, 0, 0)) }, false},
		{"one bad tx", func() *model.Block {
			return env.child(t, tx, env.transfer(3, testRecipient, 1, 0, 0))
		}, false},
		{"duplicate tx", func() *model.Block { return env.child(t, tx, tx) }, false},
		{"same nonce twice", func() *model.Block {
			return env.child(t, tx, env.transfer(0, testRecipient, 40, 0, 0))
		}, false},
		{"same nonce twice past the balance", func() *model.Block {
			return env.child(t, env.transfer(0, testRecipient, 60, 0, 0), env.transfer(0, testRecipient, 61, 0, 0))
		}, false},
	}
	for _, tt := range tests {
		err := env.validator.ValidateBlock(tt.block())
		if tt.valid {
			assert.NoError(t, err, tt.name)
		} else {
			assert.True(t, errors.Is(err, ErrBlockRejected), "%s: have %v", tt.name, err)
		}
		assert.Equal(t, tt.valid, env.validator.ValidateNewBlock(tt.block()), tt.name)
	}
}

// Two transfers reusing a nonce are refused up front instead of breaking
// the ledger at apply time.
func TestValidateBlockNonceReuseNeverApplied(t *testing.T) {
	env := newTestEnv(t, "100", nil)
	block := env.child(t, env.transfer(0, testRecipient, 30, 0, 0), env.transfer(0, testRecipient, 40, 0, 0))

	err := env.validator.ValidateBlock(block)
	require.True(t, errors.Is(err, ErrBlockRejected))
	second := block.Transactions()[1].Hash()
	assert.Contains(t, err.Error(), hex.EncodeToString(second[:]))
	assert.Equal(t, uint32(0), env.state.GetNonce(env.addr))
	assert.Equal(t, uint64(100), env.state.GetBalance(env.addr).Uint64())
}

func TestValidateBlockDelegatesStructure(t *testing.T) {
	env := newTestEnv(t, "100", nil)
	env.coordinator.structureErr = consensus.ErrInvalidStructure

	err := env.validator.ValidateBlock(env.child(t))
	assert.True(t, errors.Is(err, ErrBlockRejected))
	assert.Contains(t, err.Error(), consensus.ErrInvalidStructure.Error())
}

// A block built on a stale parent is refused without touching the ledger.
func TestValidateNewBlockStaleParent(t *testing.T) {
	env := newTestEnv(t, "100", nil)
	stale := env.child(t, env.transfer(0, testRecipient, 30, 0, 0))
	require.NoError(t, env.processor.Process(env.child(t)))

	before := env.state.Accounts()
	assert.False(t, env.validator.ValidateNewBlock(stale))
	assert.Equal(t, before, env.state.Accounts())
	assert.Equal(t, uint64(1), env.chain.LatestBlock().Height())
}

func TestValidateBlockAcceptsPendingTx(t *testing.T) {
	env := newTestEnv(t, "100", nil)
	tx := env.transfer(0, testRecipient, 30, 0, 0)
	_, err := env.state.AddTx(tx)
	require.NoError(t, err)

	assert.True(t, env.validator.ValidateNewBlock(env.child(t, tx)))
}
