// Package entropy wires the ledger, the chain, the coordinator and the block
// builder into one node service.
package entropy

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/entropyio/go-statecore/blockchain"
	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/blockchain/state"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/entropyio/go-statecore/consensus/rdpos"
	"github.com/entropyio/go-statecore/database"
	"github.com/entropyio/go-statecore/database/leveldb"
	"github.com/entropyio/go-statecore/logger"
	"github.com/entropyio/go-statecore/miner"
	"github.com/holiman/uint256"
)

var log = logger.NewLogger("[entropy]")

// Entropy implements the state and block production service of a node.
type Entropy struct {
	config *config.Config

	// DB interfaces
	chainDb database.KeyValueStore

	stateDB     *state.StateDB
	blockchain  *blockchain.BlockChain
	tip         *blockchain.ChainTip
	coordinator *rdpos.Coordinator
	validator   *blockchain.BlockValidator
	processor   *blockchain.StateProcessor
	builder     *miner.Builder
	miner       *miner.Miner

	lock sync.Mutex // serializes block processing
}

// OpenDatabase opens the leveldb chain database under the data directory.
func OpenDatabase(cfg *config.NodeConfig) (database.KeyValueStore, error) {
	path := cfg.ResolvePath("chaindata")
	if path == "" {
		return nil, errors.New("no data directory configured")
	}
	return leveldb.New(path, cfg.DatabaseCache, cfg.DatabaseHandles, "statecore/db/chaindata/", false)
}

// ValidatorKey parses the configured validator key, nil if none is set.
func ValidatorKey(cfg *config.NodeConfig) (*ecdsa.PrivateKey, error) {
	if cfg.ValidatorKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(cfg.ValidatorKey)
	if err != nil {
		return nil, fmt.Errorf("invalid validator key: %w", err)
	}
	return key, nil
}

// New creates the service on top of db. The ledger is loaded, or seeded
// with the genesis allocation on an empty store, and the chain tip prefers
// the latest block. contracts may be nil.
func New(cfg *config.Config, db database.KeyValueStore, contracts blockchain.ContractCaller) (*Entropy, error) {
	chainConfig := &cfg.Chain
	if err := chainConfig.Validate(); err != nil {
		return nil, err
	}
	key, err := ValidatorKey(&cfg.Node)
	if err != nil {
		return nil, err
	}
	log.Infof("Initialised chain configuration. %v", chainConfig)

	chain, err := blockchain.NewBlockChain(db, chainConfig, cfg.Node.BlockCacheSize)
	if err != nil {
		return nil, err
	}
	stateDB := state.New(chainConfig.ChainID)
	if err := stateDB.Load(db, chainConfig.Genesis.Alloc); err != nil {
		return nil, err
	}
	coordinator, err := rdpos.New(chainConfig, key, chain)
	if err != nil {
		return nil, err
	}
	tip := blockchain.NewChainTip(chain)
	tip.SetPreference(chain.LatestBlock().Hash())

	s := &Entropy{
		config:      cfg,
		chainDb:     db,
		stateDB:     stateDB,
		blockchain:  chain,
		tip:         tip,
		coordinator: coordinator,
		validator:   blockchain.NewBlockValidator(chain, coordinator, stateDB),
		processor:   blockchain.NewStateProcessor(chain, coordinator, contracts, stateDB),
		builder:     miner.NewBuilder(cfg.Miner, tip, chain, stateDB, coordinator),
	}
	s.miner = miner.New(s.builder, s, cfg.Miner.RetryInterval*10)
	return s, nil
}

func (s *Entropy) StateDB() *state.StateDB                  { return s.stateDB }
func (s *Entropy) BlockChain() *blockchain.BlockChain       { return s.blockchain }
func (s *Entropy) ChainTip() *blockchain.ChainTip           { return s.tip }
func (s *Entropy) Coordinator() consensus.Coordinator       { return s.coordinator }
func (s *Entropy) Miner() *miner.Miner                      { return s.miner }
func (s *Entropy) ChainDb() database.KeyValueStore          { return s.chainDb }
func (s *Entropy) Config() *config.Config                   { return s.config }
func (s *Entropy) GetBalance(a common.Address) *uint256.Int { return s.stateDB.GetBalance(a) }
func (s *Entropy) GetNonce(a common.Address) uint32         { return s.stateDB.GetNonce(a) }

// msgAlreadyKnown answers a resubmission of a pending transaction. The call
// changed nothing.
const msgAlreadyKnown = "Transaction already exists in mempool"

// SubmitTransaction routes tx to the coordination pool or the mempool and
// reports the outcome as a JSON-RPC style (code, message) pair. Code 0
// means accepted, the message then carries the transaction hash, or
// msgAlreadyKnown when the transaction was pending already.
func (s *Entropy) SubmitTransaction(tx *model.Transaction) (int, string) {
	if s.coordinator.TxKind(tx) != consensus.KindOther {
		if err := s.coordinator.AddCoordinationTx(tx); err != nil {
			log.Warningf("Coordination tx %x rejected: %v", tx.Hash(), err)
			return state.CodeRejected, "Transaction rejected: " + err.Error()
		}
		return 0, tx.Hash().Hex()
	}

	res, err := s.stateDB.AddTx(tx)
	if err != nil {
		var txErr *state.TxError
		if errors.As(err, &txErr) {
			return txErr.ErrorCode(), txErr.Error()
		}
		return state.CodeRejected, err.Error()
	}
	if res == state.AlreadyKnown {
		log.Debugf("Tx %x already known", tx.Hash())
		return 0, msgAlreadyKnown
	}
	return 0, tx.Hash().Hex()
}

// ValidateNewBlock checks a block received for voting and, if valid,
// registers it with the chain tip as processing.
func (s *Entropy) ValidateNewBlock(block *model.Block) bool {
	if !s.validator.ValidateNewBlock(block) {
		return false
	}
	s.tip.ProcessBlock(block)
	return true
}

// AcceptBlock applies a processing block the consensus layer accepted and
// moves the preference to it.
func (s *Entropy) AcceptBlock(hash common.Hash) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	block := s.tip.GetBlock(hash)
	if block == nil || !s.tip.IsProcessing(hash) {
		return fmt.Errorf("%w: %x", blockchain.ErrUnknownBlock, hash)
	}
	return s.apply(block)
}

// RejectBlock drops a processing block.
func (s *Entropy) RejectBlock(hash common.Hash) error {
	_, err := s.tip.Reject(hash)
	return err
}

// ProcessNewBlock validates block and applies it in one step. Nothing is
// mutated if validation fails.
func (s *Entropy) ProcessNewBlock(block *model.Block) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.validator.ValidateBlock(block); err != nil {
		return err
	}
	s.tip.ProcessBlock(block)
	return s.apply(block)
}

func (s *Entropy) apply(block *model.Block) error {
	if err := s.processor.Process(block); err != nil {
		if _, rerr := s.tip.Reject(block.Hash()); rerr != nil {
			log.Debugf("Reject after failed apply: %v", rerr)
		}
		return err
	}
	if _, err := s.tip.Accept(block.Hash()); err != nil {
		return err
	}
	s.tip.SetPreference(block.Hash())
	return nil
}

// CreateNewBlock builds and signs a candidate on top of the preferred block.
func (s *Entropy) CreateNewBlock(ctx context.Context) (*model.Block, error) {
	return s.builder.CreateCandidate(ctx)
}

// Faucet credits the configured faucet amount to addr.
func (s *Entropy) Faucet(addr common.Address) error {
	return s.stateDB.Faucet(addr, s.config.Chain.FaucetAmount)
}

func (s *Entropy) StartMining() { s.miner.Start() }
func (s *Entropy) StopMining()  { s.miner.Stop() }

// Close stops block production, persists the ledger and closes the
// database.
func (s *Entropy) Close() error {
	s.miner.Stop()
	if err := s.stateDB.Save(s.chainDb); err != nil {
		log.Errorf("Failed to save ledger: %v", err)
		return err
	}
	log.Info("Ledger saved")
	return s.chainDb.Close()
}
