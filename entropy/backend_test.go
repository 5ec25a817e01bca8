package entropy

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/entropyio/go-statecore/blockchain"
	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/blockchain/state"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/consensus/rdpos"
	"github.com/entropyio/go-statecore/database"
	"github.com/entropyio/go-statecore/database/memorydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recipient = common.HexToAddress("0x00000000000000000000000000000000000000bb")

type testNode struct {
	config     *config.Config
	validators map[common.Address]*ecdsa.PrivateKey
	sender     *ecdsa.PrivateKey
}

// newTestNode prepares a config with five validators, the local node being
// the producer of the first round, and one funded account.
func newTestNode(t *testing.T, balance string) *testNode {
	cfg := config.DefaultConfig()
	cfg.Chain = *config.TestChainConfig.Copy()
	cfg.Miner = config.MinerConfig{RetryInterval: 5 * time.Millisecond, BuildTimeout: 5 * time.Second}

	validators := make(map[common.Address]*ecdsa.PrivateKey)
	for i := 0; i < cfg.Chain.MinValidators+1; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		addr := crypto.PubkeyToAddress(key.PublicKey)
		validators[addr] = key
		cfg.Chain.Validators = append(cfg.Chain.Validators, addr)
	}
	sender, err := crypto.GenerateKey()
	require.NoError(t, err)
	cfg.Chain.Genesis.Alloc = []config.GenesisAccount{{Address: crypto.PubkeyToAddress(sender.PublicKey), Balance: balance}}

	// Find the first producer on a scratch chain.
	scratch, err := blockchain.NewBlockChain(memorydb.New(), &cfg.Chain, 0)
	require.NoError(t, err)
	observer, err := rdpos.New(&cfg.Chain, nil, scratch)
	require.NoError(t, err)
	cfg.Node.ValidatorKey = hex.EncodeToString(crypto.FromECDSA(validators[observer.ValidatorOrder()[0]]))

	return &testNode{config: cfg, validators: validators, sender: sender}
}

func (n *testNode) start(t *testing.T, db database.KeyValueStore) *Entropy {
	s, err := New(n.config, db, nil)
	require.NoError(t, err)
	return s
}

func (n *testNode) transfer(nonce uint64, value, gas, price int64) *model.Transaction {
	tx := model.NewTransaction(nonce, recipient, big.NewInt(value), uint64(gas), big.NewInt(price), nil)
	return model.MustSignTx(tx, n.config.Chain.ChainID, n.sender)
}

// submitQuorum sends the coordination transactions of the current round.
func (n *testNode) submitQuorum(t *testing.T, s *Entropy) {
	order := s.Coordinator().ValidatorOrder()
	round := s.coordinator.Round()
	for i := 1; i <= n.config.Chain.MinValidators; i++ {
		key := n.validators[order[i]]
		seed := crypto.Keccak256Hash([]byte{byte(i), byte(round)})
		hashTx, err := rdpos.NewRandomHashTx(key, n.config.Chain.ChainID, n.config.Chain.ValidatorContract, round, seed)
		require.NoError(t, err)
		seedTx, err := rdpos.NewRandomSeedTx(key, n.config.Chain.ChainID, n.config.Chain.ValidatorContract, round, seed)
		require.NoError(t, err)
		code, msg := s.SubmitTransaction(hashTx)
		require.Equal(t, 0, code, msg)
		code, msg = s.SubmitTransaction(seedTx)
		require.Equal(t, 0, code, msg)
	}
}

func TestTransferEndToEnd(t *testing.T) {
	n := newTestNode(t, "100")
	s := n.start(t, memorydb.New())
	from := crypto.PubkeyToAddress(n.sender.PublicKey)

	tx := n.transfer(0, 30, 2, 1)
	code, msg := s.SubmitTransaction(tx)
	require.Equal(t, 0, code, msg)
	assert.Equal(t, tx.Hash().Hex(), msg)
	assert.Equal(t, 1, s.StateDB().PoolSize())

	n.submitQuorum(t, s)
	// Coordination transactions never enter the mempool.
	assert.Equal(t, 1, s.StateDB().PoolSize())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	block, err := s.CreateNewBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{tx.Hash()}, block.Transactions().Hashes())
	assert.Len(t, block.ValidatorTransactions(), 2*n.config.Chain.MinValidators)

	require.NoError(t, s.ProcessNewBlock(block))
	assert.Equal(t, uint64(100-30-2), s.GetBalance(from).Uint64())
	assert.Equal(t, uint32(1), s.GetNonce(from))
	assert.Equal(t, uint64(30), s.GetBalance(recipient).Uint64())
	assert.Equal(t, 0, s.StateDB().PoolSize())
	assert.Equal(t, block.Hash(), s.BlockChain().LatestBlock().Hash())
	assert.Equal(t, blockchain.StatusAccepted, s.ChainTip().BlockStatus(block.Hash()))
	pref, ok := s.ChainTip().PreferredBlockHash()
	assert.True(t, ok)
	assert.Equal(t, block.Hash(), pref)
	assert.Equal(t, uint64(2), s.coordinator.Round())
	assert.Empty(t, s.Coordinator().PendingCoordinationTxs())
}

func TestSubmitTransactionErrors(t *testing.T) {
	n := newTestNode(t, "100")
	s := n.start(t, memorydb.New())

	code, msg := s.SubmitTransaction(n.transfer(0, 200, 0, 0))
	assert.Equal(t, state.CodeInsufficientBalance, code)
	assert.Equal(t, "Transaction rejected: Insufficient balance - required: 200, available: 100", msg)
	assert.Equal(t, 0, s.StateDB().PoolSize())

	code, _ = s.SubmitTransaction(n.transfer(3, 10, 0, 0))
	assert.Equal(t, state.CodeInvalidNonce, code)

	unsigned := model.NewTransaction(0, recipient, big.NewInt(1), 0, big.NewInt(0), nil)
	code, _ = s.SubmitTransaction(unsigned)
	assert.Equal(t, state.CodeRejected, code)

	tx := n.transfer(0, 10, 0, 0)
	code, _ = s.SubmitTransaction(tx)
	assert.Equal(t, 0, code)
	code, msg = s.SubmitTransaction(tx)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Transaction already exists in mempool", msg)
	assert.Equal(t, 1, s.StateDB().PoolSize())

	// A coordination transaction from outside the quorum.
	outsider, err := crypto.GenerateKey()
	require.NoError(t, err)
	bad, err := rdpos.NewRandomHashTx(outsider, n.config.Chain.ChainID, n.config.Chain.ValidatorContract, 1, common.Hash{})
	require.NoError(t, err)
	code, _ = s.SubmitTransaction(bad)
	assert.Equal(t, state.CodeRejected, code)
}

func TestValidateAndAcceptBlock(t *testing.T) {
	n := newTestNode(t, "100")
	s := n.start(t, memorydb.New())

	n.submitQuorum(t, s)
	block, err := s.CreateNewBlock(context.Background())
	require.NoError(t, err)

	require.True(t, s.ValidateNewBlock(block))
	assert.Equal(t, blockchain.StatusProcessing, s.ChainTip().BlockStatus(block.Hash()))
	require.NoError(t, s.AcceptBlock(block.Hash()))
	assert.Equal(t, uint64(1), s.BlockChain().LatestBlock().Height())
	assert.Error(t, s.AcceptBlock(block.Hash()))

	// The block is now stale: its parent is no longer the latest block.
	assert.False(t, s.ValidateNewBlock(block))
}

func TestRejectedBlockLeavesLedger(t *testing.T) {
	n := newTestNode(t, "100")
	s := n.start(t, memorydb.New())
	before := s.StateDB().Accounts()

	// Valid structure, but parent unknown.
	stale := model.NewBlock(common.HexToHash("0x01"), 1, 1)
	assert.False(t, s.ValidateNewBlock(stale))
	assert.Error(t, s.ProcessNewBlock(stale))
	assert.Equal(t, before, s.StateDB().Accounts())
	assert.Equal(t, uint64(0), s.BlockChain().LatestBlock().Height())

	n.submitQuorum(t, s)
	block, err := s.CreateNewBlock(context.Background())
	require.NoError(t, err)
	require.True(t, s.ValidateNewBlock(block))
	require.NoError(t, s.RejectBlock(block.Hash()))
	assert.Equal(t, blockchain.StatusRejected, s.ChainTip().BlockStatus(block.Hash()))
	assert.Error(t, s.AcceptBlock(block.Hash()))
}

func TestLedgerSurvivesRestart(t *testing.T) {
	n := newTestNode(t, "100")
	n.config.Node.DataDir = t.TempDir()

	db, err := OpenDatabase(&n.config.Node)
	require.NoError(t, err)
	s := n.start(t, db)
	require.NoError(t, s.Faucet(recipient))

	code, msg := s.SubmitTransaction(n.transfer(0, 30, 0, 0))
	require.Equal(t, 0, code, msg)
	n.submitQuorum(t, s)
	block, err := s.CreateNewBlock(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.ProcessNewBlock(block))
	want := s.StateDB().Accounts()
	require.NoError(t, s.Close())

	db, err = OpenDatabase(&n.config.Node)
	require.NoError(t, err)
	restarted := n.start(t, db)
	defer restarted.Close()

	assert.Equal(t, want, restarted.StateDB().Accounts())
	assert.Equal(t, block.Hash(), restarted.BlockChain().LatestBlock().Hash())
	assert.Equal(t, uint64(2), restarted.coordinator.Round())
	assert.Equal(t, "1000000000000000030", restarted.GetBalance(recipient).ToBig().String())
}

func TestNewRejectsBadConfig(t *testing.T) {
	n := newTestNode(t, "100")
	n.config.Node.ValidatorKey = "zz"
	_, err := New(n.config, memorydb.New(), nil)
	assert.Error(t, err)

	n = newTestNode(t, "100")
	n.config.Chain.Validators = n.config.Chain.Validators[:2]
	_, err = New(n.config, memorydb.New(), nil)
	assert.Error(t, err)
}
