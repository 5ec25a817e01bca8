package miner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deckarep/golang-set"
	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/pborman/uuid"
)

var (
	// ErrNotReady is returned when there is no preferred block to build on
	// yet. It is a try-later signal, not a failure.
	ErrNotReady = errors.New("no preferred block to build on")

	// ErrCoordinationTimeout is returned when the coordination transactions
	// of the round did not all arrive within the build timeout.
	ErrCoordinationTimeout = errors.New("timed out waiting for coordination transactions")

	errQuorumUnavailable = errors.New("validator order shorter than quorum")
)

// PendingSource is the view of the mempool the builder drains.
type PendingSource interface {
	// PendingTxs returns one consistent, deterministically ordered snapshot
	// of the pending transactions.
	PendingTxs() model.Transactions
}

// Builder assembles candidate blocks on top of the preferred block.
type Builder struct {
	config      config.MinerConfig
	preference  consensus.Preference
	chain       consensus.ChainReader
	pending     PendingSource
	coordinator consensus.Coordinator

	now func() time.Time
}

// NewBuilder creates a block builder.
func NewBuilder(cfg config.MinerConfig, preference consensus.Preference, chain consensus.ChainReader, pending PendingSource, coordinator consensus.Coordinator) *Builder {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = config.DefaultMinerConfig.RetryInterval
	}
	return &Builder{
		config:      cfg,
		preference:  preference,
		chain:       chain,
		pending:     pending,
		coordinator: coordinator,
		now:         time.Now,
	}
}

// slotKey identifies one coordination slot of a block.
type slotKey struct {
	validator common.Address
	kind      consensus.TxKind
}

// CreateCandidate builds, fills and signs a block on top of the preferred
// block. It blocks until every coordination slot is filled, the context is
// done or the build timeout expires. A partially filled block is never
// signed.
func (b *Builder) CreateCandidate(ctx context.Context) (*model.Block, error) {
	round := uuid.New()[:8]

	hash, ok := b.preference.PreferredBlockHash()
	if !ok {
		return nil, ErrNotReady
	}
	parent := b.chain.GetBlockByHash(hash)
	if parent == nil {
		log.Debugf("[%s] preferred block %x not found", round, hash)
		return nil, ErrNotReady
	}

	block := model.NewBlock(parent.Hash(), uint64(b.now().UnixMicro()), parent.Height()+1)
	txs := b.pending.PendingTxs()
	for _, tx := range txs {
		if err := block.AppendTx(tx); err != nil {
			return nil, err
		}
	}
	log.Debugf("[%s] building block %d on %x with %d txs", round, block.Height(), parent.Hash(), len(txs))

	slots, err := b.collectCoordinationTxs(ctx, round)
	if err != nil {
		return nil, err
	}
	for _, tx := range slots {
		if err := block.AppendValidatorTx(tx); err != nil {
			return nil, err
		}
	}
	if err := b.coordinator.FinalizeAndSign(block); err != nil {
		return nil, fmt.Errorf("could not sign block %d: %w", block.Height(), err)
	}
	log.Infof("[%s] created block. height: %d, hash: %x, txs: %d", round, block.Height(), block.Hash(), len(txs))
	return block, nil
}

// collectCoordinationTxs fills the slots hash(1..min) then seed(1..min) of
// the validator order, skipping the producer at index 0, rescanning the
// coordination pool every RetryInterval until all are filled.
func (b *Builder) collectCoordinationTxs(ctx context.Context, round string) ([]*model.Transaction, error) {
	quorum := b.coordinator.MinValidators()
	order := b.coordinator.ValidatorOrder()
	if len(order) < quorum+1 {
		return nil, fmt.Errorf("%w: %d validators, quorum %d", errQuorumUnavailable, len(order), quorum)
	}
	index := make(map[slotKey]int, 2*quorum)
	for i := 0; i < quorum; i++ {
		index[slotKey{order[i+1], consensus.KindRandomHash}] = i
		index[slotKey{order[i+1], consensus.KindRandomSeed}] = quorum + i
	}

	var timeout <-chan time.Time
	if b.config.BuildTimeout > 0 {
		timer := time.NewTimer(b.config.BuildTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	retry := time.NewTicker(b.config.RetryInterval)
	defer retry.Stop()

	slots := make([]*model.Transaction, 2*quorum)
	filled := mapset.NewThreadUnsafeSet()
	for attempt := 1; ; attempt++ {
		for _, tx := range b.coordinator.PendingCoordinationTxs() {
			slot, ok := index[slotKey{tx.From(), b.coordinator.TxKind(tx)}]
			if !ok || filled.Contains(slot) {
				continue
			}
			slots[slot] = tx
			filled.Add(slot)
		}
		if filled.Cardinality() == len(slots) {
			log.Debugf("[%s] coordination slots filled after %d scans", round, attempt)
			return slots, nil
		}
		log.Debugf("[%s] waiting for coordination txs, %d/%d slots filled", round, filled.Cardinality(), len(slots))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("%w: %d/%d slots filled after %v", ErrCoordinationTimeout, filled.Cardinality(), len(slots), b.config.BuildTimeout)
		case <-retry.C:
		}
	}
}
