// Package miner builds candidate blocks for the node's validator.
package miner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/consensus"
	"github.com/entropyio/go-statecore/logger"
)

var log = logger.NewLogger("[miner]")

// Backend wraps the methods the miner needs to hand built blocks over.
type Backend interface {
	// ProcessNewBlock validates and applies a block produced locally.
	ProcessNewBlock(block *model.Block) error
}

// Miner keeps producing blocks while started, handing every candidate to
// the backend.
type Miner struct {
	builder *Builder
	backend Backend
	pause   time.Duration

	running int32
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped miner. pause is the wait after a build that could
// not proceed.
func New(builder *Builder, backend Backend, pause time.Duration) *Miner {
	if pause <= 0 {
		pause = time.Second
	}
	return &Miner{builder: builder, backend: backend, pause: pause}
}

// Start launches the production loop. Starting twice is a no-op.
func (miner *Miner) Start() {
	miner.mu.Lock()
	defer miner.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&miner.running, 0, 1) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	miner.cancel = cancel
	miner.wg.Add(1)
	go miner.loop(ctx)
	log.Info("Miner started")
}

// Stop ends the production loop and waits for it to exit.
func (miner *Miner) Stop() {
	miner.mu.Lock()
	defer miner.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&miner.running, 1, 0) {
		return
	}
	miner.cancel()
	miner.wg.Wait()
	log.Info("Miner stopped")
}

// Mining reports whether the loop is running.
func (miner *Miner) Mining() bool {
	return atomic.LoadInt32(&miner.running) == 1
}

func (miner *Miner) loop(ctx context.Context) {
	defer miner.wg.Done()

	for {
		block, err := miner.builder.CreateCandidate(ctx)
		switch {
		case err == nil:
			if err := miner.backend.ProcessNewBlock(block); err != nil {
				log.Warningf("Local block %d not applied: %v", block.Height(), err)
			}
			continue
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, ErrNotReady), errors.Is(err, consensus.ErrNotBlockProducer):
			log.Debugf("Skipping build: %v", err)
		default:
			log.Warningf("Block build failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(miner.pause):
		}
	}
}
