// Package testutil provides fixtures shared by this module's test files.
package testutil

import (
	"github.com/brinklabs/pochain/internal/chain"
)

// SampleTxn returns a deterministic-shaped transaction for testing.
func SampleTxn() chain.Txn {
	return chain.NewTxn("alice", "bob", 7)
}

// SampleChain builds a linear chain of count blocks at difficulty 0 (any
// hash passes), each carrying no transactions.
func SampleChain(count int) *chain.Chain {
	c := chain.New()
	previousHash := chain.GenesisPreviousHash
	for i := 0; i < count; i++ {
		b := chain.NewBlock(uint32(i), previousHash, nil, 0)
		b.Finalize()
		_ = c.Extend(b)
		previousHash = b.Header.CurrentHash
	}
	return c
}

// EasyDifficulty is a difficulty value that every hash satisfies, for
// tests that need mining to resolve immediately.
const EasyDifficulty uint8 = 0
