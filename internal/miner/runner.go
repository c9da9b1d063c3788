package miner

import (
	"context"

	"go.uber.org/zap"

	"github.com/brinklabs/pochain/internal/chain"
)

// Result is published on a Runner's output channel when a mine attempt
// finishes successfully. A cancelled attempt publishes nothing.
type Result struct {
	Block *chain.Block
}

// Runner owns one in-flight mining task and its output channel, mirroring
// the cancel-then-restart contract: the node cancels a Runner's context and
// discards it, then constructs a fresh Runner for the new parent.
type Runner struct {
	miner  *Miner
	cancel context.CancelFunc
	out    chan Result
	logger *zap.Logger
}

// Start launches a mining task against parent using snapshot, returning a
// Runner whose output channel receives exactly one Result on success.
// Publishing on a channel nobody reads is harmless: the channel is
// buffered with capacity 1 and the goroutine exits either way.
func Start(ctx context.Context, logger *zap.Logger, snapshot []chain.Txn, parent *chain.Block) *Runner {
	childCtx, cancel := context.WithCancel(ctx)
	r := &Runner{
		miner:  New(logger),
		cancel: cancel,
		out:    make(chan Result, 1),
		logger: logger,
	}

	go func() {
		block, err := r.miner.Mine(childCtx, snapshot, parent)
		if err != nil {
			// Cancelled: no result to publish.
			return
		}
		select {
		case r.out <- Result{Block: block}:
		default:
			logger.Warn("miner output channel full, dropping mined block", zap.Uint32("index", block.Header.Index))
		}
	}()

	return r
}

// StartGenesis launches the one-shot, un-yielding genesis mining task.
func StartGenesis(ctx context.Context, logger *zap.Logger, difficulty uint8) *Runner {
	childCtx, cancel := context.WithCancel(ctx)
	r := &Runner{
		miner:  New(logger),
		cancel: cancel,
		out:    make(chan Result, 1),
		logger: logger,
	}

	go func() {
		block, err := r.miner.MineGenesis(childCtx, difficulty)
		if err != nil {
			return
		}
		select {
		case r.out <- Result{Block: block}:
		default:
		}
	}()

	return r
}

// Output returns the channel the node selects on for a mined block.
func (r *Runner) Output() <-chan Result {
	return r.out
}

// Cancel aborts the in-flight task. A task launched by Start observes
// cancellation within one YieldInterval of work; a StartGenesis task does
// not check for cancellation and runs until it finds a block.
func (r *Runner) Cancel() {
	r.cancel()
}
