// Package miner runs the proof-of-work search as a cancellable task.
package miner

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/brinklabs/pochain/internal/chain"
)

// YieldInterval is the fixed number of nonce iterations between
// cooperative cancellation checks.
const YieldInterval = 10000

// Miner performs the proof-of-work search on behalf of the node. It holds
// no state across calls: every Mine/MineGenesis call is an independent
// task. Mine is cancellable through its context, matching the spec's
// cancel-then-restart contract; MineGenesis does not check its context.
type Miner struct {
	logger *zap.Logger
}

// New returns a Miner that logs through logger.
func New(logger *zap.Logger) *Miner {
	return &Miner{logger: logger}
}

// Mine searches for a nonce satisfying parent's difficulty against a fresh
// block built from the mempool snapshot, yielding to ctx cancellation every
// YieldInterval iterations. It returns the finalized block on success, or
// ctx.Err() if cancelled first.
func (m *Miner) Mine(ctx context.Context, snapshot []chain.Txn, parent *chain.Block) (*chain.Block, error) {
	block := chain.NewBlock(parent.Header.Index+1, parent.Header.CurrentHash, snapshot, parent.Header.Difficulty)
	return m.search(ctx, block, true)
}

// MineGenesis is the genesis variant: index 0, the sentinel previous hash,
// an empty transaction list, and no yield requirement since genesis mining
// happens once at startup with nothing else competing for the CPU.
func (m *Miner) MineGenesis(ctx context.Context, difficulty uint8) (*chain.Block, error) {
	block := chain.NewBlock(0, chain.GenesisPreviousHash, nil, difficulty)
	return m.search(ctx, block, false)
}

func (m *Miner) search(ctx context.Context, block *chain.Block, yield bool) (*chain.Block, error) {
	block.Header.MerkleRoot = block.ComputeMerkleRoot()
	block.Header.Nonce = rand.Uint32()

	var iterations uint64
	for {
		if block.MeetsTarget() {
			block.Finalize()
			return block, nil
		}
		block.Header.Nonce++
		iterations++

		if yield && iterations%YieldInterval == 0 {
			select {
			case <-ctx.Done():
				m.logger.Debug("miner cancelled", zap.Uint32("index", block.Header.Index), zap.Uint64("iterations", iterations))
				return nil, ctx.Err()
			default:
			}
		}
	}
}
