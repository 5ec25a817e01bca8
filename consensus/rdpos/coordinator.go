// Package rdpos implements the random delegated proof of stake coordination
// protocol. Each round the validator set is shuffled with a seed derived
// from the previous block. The first validator produces the block and the
// next MinValidators validators each commit to a random seed with a
// randomHash transaction and reveal it with a randomSeed transaction. The
// revealed seeds of a block seed the next round.
package rdpos

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/entropyio/go-statecore/logger"
	lru "github.com/hashicorp/golang-lru"
)

var log = logger.NewLogger("[rdpos]")

const (
	selectorLength = 4
	payloadLength  = selectorLength + common.HashLength

	inmemorySigners = 4096 // Number of recent block signers to keep in memory
)

var (
	// randomHash(bytes32)
	randomHashSelector = []byte{0xcf, 0xff, 0xe7, 0x46}
	// randomSeed(bytes32)
	randomSeedSelector = []byte{0x6f, 0xc5, 0xa2, 0xd6}
)

var (
	errTooFewValidators   = errors.New("validator set smaller than quorum plus producer")
	errUnverified         = errors.New("coordination tx signature not verified")
	errNotCoordination    = errors.New("not a coordination transaction")
	errNotInQuorum        = errors.New("sender is not in the round's quorum")
	errWrongRound         = errors.New("coordination tx for another round")
	errDuplicateKind      = errors.New("validator already submitted this kind")
	errSeedMismatch       = errors.New("revealed seed does not match commitment")
	errWrongSigner        = errors.New("block not signed by the round's producer")
	errCoordinationLength = errors.New("wrong number of coordination transactions")
)

// Coordinator is the rdpos implementation of consensus.Coordinator.
type Coordinator struct {
	config *config.ChainConfig
	key    *ecdsa.PrivateKey // nil on nodes that never produce
	local  common.Address

	mu         sync.RWMutex
	validators []common.Address
	order      []common.Address
	seed       common.Hash
	round      uint64 // height of the block being built
	pool       map[common.Hash]*model.Transaction

	signers *lru.Cache // block hash -> signer
}

// New creates a coordinator for the validators of cfg, resuming the round
// that follows the latest block of chain. key may be nil.
func New(cfg *config.ChainConfig, key *ecdsa.PrivateKey, chain consensus.ChainReader) (*Coordinator, error) {
	if len(cfg.Validators) < cfg.MinValidators+1 {
		return nil, fmt.Errorf("%w: have %d, quorum %d", errTooFewValidators, len(cfg.Validators), cfg.MinValidators)
	}
	signers, _ := lru.New(inmemorySigners)
	c := &Coordinator{
		config:     cfg,
		key:        key,
		validators: append([]common.Address(nil), cfg.Validators...),
		signers:    signers,
	}
	if key != nil {
		c.local = crypto.PubkeyToAddress(key.PublicKey)
	}
	c.advance(chain.LatestBlock())
	return c, nil
}

// advance starts the round following block. Callers hold mu or own c.
func (c *Coordinator) advance(block *model.Block) {
	c.seed = c.SeedFromBlock(block)
	c.order = Shuffle(c.validators, c.seed)
	c.round = block.Height() + 1
	c.pool = make(map[common.Hash]*model.Transaction)
	log.Debugf("Round %d: seed %x, producer %s", c.round, c.seed, c.order[0].Hex())
}

// SeedFromBlock derives the next round seed: the keccak256 of the seeds
// revealed in block, or of the block hash when it reveals none.
func (c *Coordinator) SeedFromBlock(block *model.Block) common.Hash {
	var seeds [][]byte
	for _, tx := range block.ValidatorTransactions() {
		if c.TxKind(tx) == consensus.KindRandomSeed {
			seeds = append(seeds, tx.Data()[selectorLength:])
		}
	}
	if len(seeds) == 0 {
		return crypto.Keccak256Hash(block.Hash().Bytes())
	}
	return crypto.Keccak256Hash(seeds...)
}

// Local returns the address of the local validator key.
func (c *Coordinator) Local() common.Address { return c.local }

// MinValidators returns the quorum size.
func (c *Coordinator) MinValidators() int { return c.config.MinValidators }

// Round returns the height of the block the current round produces.
func (c *Coordinator) Round() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.round
}

// ValidatorOrder returns the shuffled validator set of the current round.
func (c *Coordinator) ValidatorOrder() []common.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]common.Address(nil), c.order...)
}

// TxKind classifies tx by its recipient and 4 byte selector.
func (c *Coordinator) TxKind(tx *model.Transaction) consensus.TxKind {
	if tx.To() != c.config.ValidatorContract {
		return consensus.KindOther
	}
	data := tx.Data()
	if len(data) != payloadLength {
		return consensus.KindOther
	}
	switch {
	case bytes.Equal(data[:selectorLength], randomHashSelector):
		return consensus.KindRandomHash
	case bytes.Equal(data[:selectorLength], randomSeedSelector):
		return consensus.KindRandomSeed
	}
	return consensus.KindOther
}

// quorumIndex returns the position of addr among order[1..MinValidators].
func (c *Coordinator) quorumIndex(addr common.Address) int {
	for i := 1; i <= c.config.MinValidators && i < len(c.order); i++ {
		if c.order[i] == addr {
			return i
		}
	}
	return -1
}

// AddCoordinationTx admits a coordination transaction of the current round.
// Resubmitting a pending transaction is a no-op.
func (c *Coordinator) AddCoordinationTx(tx *model.Transaction) error {
	if !tx.Verified() || tx.ChainID() != c.config.ChainID {
		return errUnverified
	}
	kind := c.TxKind(tx)
	if kind == consensus.KindOther {
		return errNotCoordination
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pool[tx.Hash()]; ok {
		return nil
	}
	if tx.Nonce() != c.round {
		return fmt.Errorf("%w: nonce %d, round %d", errWrongRound, tx.Nonce(), c.round)
	}
	from := tx.From()
	if c.quorumIndex(from) < 0 {
		return fmt.Errorf("%w: %s", errNotInQuorum, from.Hex())
	}
	for _, pending := range c.pool {
		if pending.From() != from {
			continue
		}
		pendingKind := c.TxKind(pending)
		if pendingKind == kind {
			return fmt.Errorf("%w: %s from %s", errDuplicateKind, kind, from.Hex())
		}
		if !commitmentMatches(c.pairOf(pending, tx, pendingKind)) {
			return fmt.Errorf("%w: %s", errSeedMismatch, from.Hex())
		}
	}
	c.pool[tx.Hash()] = tx
	log.Debugf("Coordination tx %x admitted: %s from %s", tx.Hash(), kind, from.Hex())
	return nil
}

// pairOf orders two coordination transactions of one validator as
// (randomHash, randomSeed).
func (c *Coordinator) pairOf(pending, tx *model.Transaction, pendingKind consensus.TxKind) (*model.Transaction, *model.Transaction) {
	if pendingKind == consensus.KindRandomHash {
		return pending, tx
	}
	return tx, pending
}

func commitmentMatches(hashTx, seedTx *model.Transaction) bool {
	committed := hashTx.Data()[selectorLength:]
	revealed := seedTx.Data()[selectorLength:]
	return bytes.Equal(crypto.Keccak256(revealed), committed)
}

// PendingCoordinationTxs returns a copy of the coordination pool.
func (c *Coordinator) PendingCoordinationTxs() map[common.Hash]*model.Transaction {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pending := make(map[common.Hash]*model.Transaction, len(c.pool))
	for hash, tx := range c.pool {
		pending[hash] = tx
	}
	return pending
}

// ValidateBlockStructure checks that block carries hash(1..min) then
// seed(1..min) of the current round, that every reveal matches its
// commitment and that the round's producer signed it.
func (c *Coordinator) ValidateBlockStructure(block *model.Block) error {
	c.mu.RLock()
	order := c.order
	round := c.round
	c.mu.RUnlock()

	quorum := c.config.MinValidators
	txs := block.ValidatorTransactions()
	if len(txs) != 2*quorum {
		return fmt.Errorf("%w: %v, have %d, want %d", consensus.ErrInvalidStructure, errCoordinationLength, len(txs), 2*quorum)
	}
	for i := 0; i < quorum; i++ {
		want := order[i+1]
		hashTx, seedTx := txs[i], txs[quorum+i]
		for _, check := range []struct {
			tx   *model.Transaction
			kind consensus.TxKind
		}{{hashTx, consensus.KindRandomHash}, {seedTx, consensus.KindRandomSeed}} {
			tx := check.tx
			if !tx.Verified() || tx.ChainID() != c.config.ChainID {
				return fmt.Errorf("%w: %v: tx %x", consensus.ErrInvalidStructure, errUnverified, tx.Hash())
			}
			if c.TxKind(tx) != check.kind || tx.From() != want {
				return fmt.Errorf("%w: slot %s(%d) holds %s from %s, want %s",
					consensus.ErrInvalidStructure, check.kind, i+1, c.TxKind(tx), tx.From().Hex(), want.Hex())
			}
			if tx.Nonce() != round {
				return fmt.Errorf("%w: %v: nonce %d, round %d", consensus.ErrInvalidStructure, errWrongRound, tx.Nonce(), round)
			}
		}
		if !commitmentMatches(hashTx, seedTx) {
			return fmt.Errorf("%w: %v: %s", consensus.ErrInvalidStructure, errSeedMismatch, want.Hex())
		}
	}

	signer, err := c.signer(block)
	if err != nil {
		return fmt.Errorf("%w: %v", consensus.ErrInvalidStructure, err)
	}
	if signer != order[0] {
		return fmt.Errorf("%w: %v: signer %s, producer %s", consensus.ErrInvalidStructure, errWrongSigner, signer.Hex(), order[0].Hex())
	}
	return nil
}

// signer recovers the producer of block, caching the result.
func (c *Coordinator) signer(block *model.Block) (common.Address, error) {
	hash := block.Hash()
	if address, known := c.signers.Get(hash); known {
		return address.(common.Address), nil
	}
	signer, err := block.Signer()
	if err != nil {
		return common.Address{}, err
	}
	c.signers.Add(hash, signer)
	return signer, nil
}

// FinalizeAndSign signs block with the local key. Only the producer of the
// current round may sign.
func (c *Coordinator) FinalizeAndSign(block *model.Block) error {
	c.mu.RLock()
	producer := c.order[0]
	c.mu.RUnlock()

	if c.key == nil || c.local != producer {
		return fmt.Errorf("%w: producer is %s", consensus.ErrNotBlockProducer, producer.Hex())
	}
	sig, err := crypto.Sign(block.Hash().Bytes(), c.key)
	if err != nil {
		return err
	}
	if err := block.SetSignature(sig); err != nil {
		return err
	}
	c.signers.Add(block.Hash(), c.local)
	log.Infof("Signed block. height: %d, hash: %x", block.Height(), block.Hash())
	return nil
}

// ProcessBlock starts the round after block and drops the coordination pool.
func (c *Coordinator) ProcessBlock(block *model.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advance(block)
}

// CreateCoordinationTxs returns the randomHash and randomSeed transactions
// the local validator submits for the current round.
func (c *Coordinator) CreateCoordinationTxs(seed common.Hash) (*model.Transaction, *model.Transaction, error) {
	if c.key == nil {
		return nil, nil, consensus.ErrNotBlockProducer
	}
	round := c.Round()
	hashTx, err := NewRandomHashTx(c.key, c.config.ChainID, c.config.ValidatorContract, round, seed)
	if err != nil {
		return nil, nil, err
	}
	seedTx, err := NewRandomSeedTx(c.key, c.config.ChainID, c.config.ValidatorContract, round, seed)
	if err != nil {
		return nil, nil, err
	}
	return hashTx, seedTx, nil
}

// NewRandomHashTx builds the signed commitment to seed for round.
func NewRandomHashTx(key *ecdsa.PrivateKey, chainID uint64, contract common.Address, round uint64, seed common.Hash) (*model.Transaction, error) {
	data := append(append([]byte{}, randomHashSelector...), crypto.Keccak256(seed[:])...)
	return model.SignTx(model.NewTransaction(round, contract, new(big.Int), 0, new(big.Int), data), chainID, key)
}

// NewRandomSeedTx builds the signed reveal of seed for round.
func NewRandomSeedTx(key *ecdsa.PrivateKey, chainID uint64, contract common.Address, round uint64, seed common.Hash) (*model.Transaction, error) {
	data := append(append([]byte{}, randomSeedSelector...), seed[:]...)
	return model.SignTx(model.NewTransaction(round, contract, new(big.Int), 0, new(big.Int), data), chainID, key)
}
