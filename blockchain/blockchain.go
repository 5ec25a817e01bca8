// Package blockchain implements the canonical chain, block validation and
// the application of accepted blocks to the ledger.
package blockchain

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/database"
	"github.com/entropyio/go-statecore/database/rawdb"
	"github.com/entropyio/go-statecore/logger"
	lru "github.com/hashicorp/golang-lru"
)

var log = logger.NewLogger("[blockchain]")

const defaultBlockCacheLimit = 256

// BlockChain is the canonical chain of applied blocks. Blocks are only ever
// appended on top of the latest one.
type BlockChain struct {
	config *config.ChainConfig
	db     database.KeyValueStore

	genesisBlock *model.Block
	currentBlock atomic.Value // *model.Block

	chainmu    sync.Mutex // serializes Append
	blockCache *lru.Cache // hash -> *model.Block
}

// NewBlockChain opens the chain stored in db, writing the genesis block of
// cfg first if db is empty.
func NewBlockChain(db database.KeyValueStore, cfg *config.ChainConfig, cacheSize int) (*BlockChain, error) {
	if cacheSize <= 0 {
		cacheSize = defaultBlockCacheLimit
	}
	blockCache, _ := lru.New(cacheSize)

	genesis, err := SetupGenesisBlock(db, cfg)
	if err != nil {
		return nil, err
	}
	bc := &BlockChain{
		config:       cfg,
		db:           db,
		genesisBlock: genesis,
		blockCache:   blockCache,
	}
	if err := bc.loadLastState(); err != nil {
		return nil, err
	}
	return bc, nil
}

// loadLastState restores the head marker from the database.
func (bc *BlockChain) loadLastState() error {
	head := rawdb.ReadHeadBlockHash(bc.db)
	if (head == common.Hash{}) {
		log.Warning("Empty database, resetting chain")
		bc.currentBlock.Store(bc.genesisBlock)
		return nil
	}
	current := bc.GetBlockByHash(head)
	if current == nil {
		return fmt.Errorf("%w: head block %x", ErrUnknownBlock, head)
	}
	bc.currentBlock.Store(current)
	log.Infof("Loaded most recent local block. height: %d, hash: %x", current.Height(), current.Hash())
	return nil
}

// Config retrieves the chain's configuration.
func (bc *BlockChain) Config() *config.ChainConfig { return bc.config }

// Genesis retrieves the chain's genesis block.
func (bc *BlockChain) Genesis() *model.Block { return bc.genesisBlock }

// LatestBlock retrieves the current head block of the canonical chain.
func (bc *BlockChain) LatestBlock() *model.Block {
	return bc.currentBlock.Load().(*model.Block)
}

// HasBlock checks if a block is fully present in the database or not.
func (bc *BlockChain) HasBlock(hash common.Hash) bool {
	if bc.blockCache.Contains(hash) {
		return true
	}
	return rawdb.HasBlock(bc.db, hash)
}

// GetBlockByHash retrieves a block from the database by hash, caching it if found.
func (bc *BlockChain) GetBlockByHash(hash common.Hash) *model.Block {
	if block, ok := bc.blockCache.Get(hash); ok {
		return block.(*model.Block)
	}
	block := rawdb.ReadBlock(bc.db, hash)
	if block == nil {
		return nil
	}
	bc.blockCache.Add(hash, block)
	return block
}

// GetBlockByHeight retrieves a canonical block from the database by height.
func (bc *BlockChain) GetBlockByHeight(height uint64) *model.Block {
	hash := rawdb.ReadCanonicalHash(bc.db, height)
	if (hash == common.Hash{}) {
		return nil
	}
	return bc.GetBlockByHash(hash)
}

// Append links block on top of the latest block and makes it the new head.
func (bc *BlockChain) Append(block *model.Block) error {
	bc.chainmu.Lock()
	defer bc.chainmu.Unlock()

	current := bc.LatestBlock()
	if block.ParentHash() != current.Hash() || block.Height() != current.Height()+1 {
		return fmt.Errorf("%w: parent %x height %d, head %x height %d",
			ErrNotExtendingHead, block.ParentHash(), block.Height(), current.Hash(), current.Height())
	}
	if err := rawdb.WriteCanonicalBlock(bc.db, block); err != nil {
		return err
	}
	bc.blockCache.Add(block.Hash(), block)
	bc.currentBlock.Store(block)

	log.Infof("Appended block. height: %d, hash: %x, txs: %d", block.Height(), block.Hash(), len(block.Transactions()))
	return nil
}
