package blockchain

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/blockchain/state"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/entropyio/go-statecore/database/memorydb"
	"github.com/stretchr/testify/require"
)

// fakeCoordinator accepts or refuses every block wholesale.
type fakeCoordinator struct {
	mu            sync.Mutex
	structureErr  error
	processed     []*model.Block
	signingFailed error
}

func (c *fakeCoordinator) MinValidators() int                         { return 0 }
func (c *fakeCoordinator) ValidatorOrder() []common.Address           { return nil }
func (c *fakeCoordinator) TxKind(*model.Transaction) consensus.TxKind { return consensus.KindOther }
func (c *fakeCoordinator) AddCoordinationTx(*model.Transaction) error { return nil }
func (c *fakeCoordinator) PendingCoordinationTxs() map[common.Hash]*model.Transaction {
	return nil
}
func (c *fakeCoordinator) ValidateBlockStructure(*model.Block) error { return c.structureErr }
func (c *fakeCoordinator) FinalizeAndSign(*model.Block) error        { return c.signingFailed }
func (c *fakeCoordinator) ProcessBlock(block *model.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed = append(c.processed, block)
}

type testEnv struct {
	db          *memorydb.Database
	chain       *BlockChain
	state       *state.StateDB
	coordinator *fakeCoordinator
	validator   *BlockValidator
	processor   *StateProcessor

	key  *ecdsa.PrivateKey
	addr common.Address
}

var testRecipient = common.HexToAddress("0x00000000000000000000000000000000000000bb")

// newTestEnv opens a chain over an in-memory store whose only account is a
// fresh key holding balance.
func newTestEnv(t *testing.T, balance string, contracts ContractCaller) *testEnv {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	cfg := config.TestChainConfig.Copy()
	cfg.Genesis.Alloc = []config.GenesisAccount{{Address: addr, Balance: balance}}

	db := memorydb.New()
	chain, err := NewBlockChain(db, cfg, 0)
	require.NoError(t, err)
	stateDB := state.New(cfg.ChainID)
	require.NoError(t, stateDB.Load(db, cfg.Genesis.Alloc))

	coordinator := new(fakeCoordinator)
	return &testEnv{
		db:          db,
		chain:       chain,
		state:       stateDB,
		coordinator: coordinator,
		validator:   NewBlockValidator(chain, coordinator, stateDB),
		processor:   NewStateProcessor(chain, coordinator, contracts, stateDB),
		key:         key,
		addr:        addr,
	}
}

func (env *testEnv) transfer(nonce uint64, to common.Address, value, gas, price int64) *model.Transaction {
	tx := model.NewTransaction(nonce, to, big.NewInt(value), uint64(gas), big.NewInt(price), nil)
	return model.MustSignTx(tx, env.state.ChainID(), env.key)
}

// child returns an unsigned block on top of the latest block holding txs.
func (env *testEnv) child(t *testing.T, txs ...*model.Transaction) *model.Block {
	parent := env.chain.LatestBlock()
	block := model.NewBlock(parent.Hash(), parent.Time()+1, parent.Height()+1)
	for _, tx := range txs {
		require.NoError(t, block.AppendTx(tx))
	}
	return block
}
