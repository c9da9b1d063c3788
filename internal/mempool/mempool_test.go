package mempool

import (
	"testing"

	"github.com/brinklabs/pochain/internal/chain"
)

func TestInsertReportsNewThenIdempotent(t *testing.T) {
	m := New()
	txn := chain.NewTxn("a", "b", 7)

	if !m.Insert(txn) {
		t.Fatal("first insert should report new")
	}
	if m.Insert(txn) {
		t.Fatal("second insert of the same txn should report not-new")
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
}

func TestRetainNotIn(t *testing.T) {
	m := New()
	a := chain.NewTxn("a", "b", 1)
	b := chain.NewTxn("c", "d", 2)
	m.Insert(a)
	m.Insert(b)

	block := chain.NewBlock(1, "x", []chain.Txn{a}, 0)
	m.RetainNotIn(block)

	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
	snap := m.Snapshot()
	if len(snap) != 1 || !snap[0].Equal(b) {
		t.Fatal("expected only the unconfirmed txn to remain")
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	m := New()
	m.Insert(chain.NewTxn("a", "b", 1))
	snap := m.Snapshot()
	m.Insert(chain.NewTxn("c", "d", 2))
	if len(snap) != 1 {
		t.Fatal("snapshot taken before the second insert must not observe it")
	}
}
