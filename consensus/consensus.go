// Package consensus defines the collaborators the block production engine
// needs from the consensus layer: the validator coordination protocol, the
// preferred tip and read access to the canonical chain.
package consensus

import (
	"errors"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
)

var (
	// ErrNotBlockProducer is returned when the local node is asked to sign a
	// block in a round where another validator produces.
	ErrNotBlockProducer = errors.New("local node is not the block producer")

	// ErrInvalidStructure is returned when the coordination transactions or
	// the producer signature of a block do not match the round.
	ErrInvalidStructure = errors.New("invalid block structure")
)

// TxKind classifies a transaction for the coordination protocol.
type TxKind int

const (
	KindOther TxKind = iota
	KindRandomHash
	KindRandomSeed
)

func (k TxKind) String() string {
	switch k {
	case KindRandomHash:
		return "randomHash"
	case KindRandomSeed:
		return "randomSeed"
	}
	return "other"
}

// ChainReader defines a small collection of methods needed to access the local
// blockchain while building and validating blocks.
type ChainReader interface {
	// LatestBlock retrieves the current head of the canonical chain.
	LatestBlock() *model.Block

	// GetBlockByHash retrieves a block by hash, nil if unknown.
	GetBlockByHash(hash common.Hash) *model.Block
}

// ChainWriter extends ChainReader with appending to the canonical chain.
type ChainWriter interface {
	ChainReader

	// Append links block on top of the latest block.
	Append(block *model.Block) error
}

// Preference exposes the block the consensus layer currently builds on.
type Preference interface {
	// PreferredBlockHash returns the preferred tip, false if there is none yet.
	PreferredBlockHash() (common.Hash, bool)
}

// Coordinator is the validator coordination protocol. Every block carries
// one randomHash commitment and one randomSeed reveal from each of the
// MinValidators validators that follow the producer in ValidatorOrder.
type Coordinator interface {
	// MinValidators returns the quorum size.
	MinValidators() int

	// ValidatorOrder returns the canonical validator order of the current
	// round. Index 0 is the block producer.
	ValidatorOrder() []common.Address

	// TxKind classifies tx.
	TxKind(tx *model.Transaction) TxKind

	// AddCoordinationTx admits a randomHash or randomSeed transaction into
	// the coordination pool.
	AddCoordinationTx(tx *model.Transaction) error

	// PendingCoordinationTxs returns a copy of the coordination pool.
	PendingCoordinationTxs() map[common.Hash]*model.Transaction

	// ValidateBlockStructure checks the coordination transactions and the
	// producer signature of block.
	ValidateBlockStructure(block *model.Block) error

	// FinalizeAndSign seals block with the local validator key.
	FinalizeAndSign(block *model.Block) error

	// ProcessBlock advances the round after block was applied.
	ProcessBlock(block *model.Block)
}
