// Package mempool holds the node's set of pending, unconfirmed transactions.
package mempool

import (
	"sync"

	"github.com/brinklabs/pochain/internal/chain"
)

// Mempool holds pending Txn values indexed by ID, at most one per ID. A Txn
// counts as already present only when the held record with its ID is equal
// in all four fields; a Txn whose ID is held with different fields replaces
// that record. The node event loop is its only writer; Snapshot gives miner
// tasks a read-only copy to work from.
type Mempool struct {
	mu   sync.RWMutex
	txns map[string]chain.Txn
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{txns: make(map[string]chain.Txn)}
}

// Insert adds t if not already present, reporting whether it was newly
// added. The node uses this flag to suppress gossip loops and duplicate
// broadcasts; a second Insert of an identical Txn reports false and leaves
// the mempool unchanged.
func (m *Mempool) Insert(t chain.Txn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.txns[t.ID]; ok && existing.Equal(t) {
		return false
	}
	m.txns[t.ID] = t
	return true
}

// RetainNotIn removes every transaction whose exact record appears in the
// just-adopted block's body.
func (m *Mempool) RetainNotIn(block *chain.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, confirmed := range block.Body.TxnData {
		if existing, ok := m.txns[confirmed.ID]; ok && existing.Equal(confirmed) {
			delete(m.txns, confirmed.ID)
		}
	}
}

// Snapshot returns a point-in-time copy of the pending transactions, safe
// to hand to a miner task running concurrently with further Inserts.
func (m *Mempool) Snapshot() []chain.Txn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chain.Txn, 0, len(m.txns))
	for _, t := range m.txns {
		out = append(out, t)
	}
	return out
}

// Len reports the number of pending transactions.
func (m *Mempool) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txns)
}
