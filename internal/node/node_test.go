package node

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"go.uber.org/zap"

	"github.com/brinklabs/pochain/internal/chain"
	"github.com/brinklabs/pochain/internal/testutil"
	"github.com/brinklabs/pochain/internal/transport"
	"github.com/brinklabs/pochain/internal/wire"
)

func newTestNode() *Node {
	transp := transport.New(zap.NewNop())
	n := New(Config{Address: "127.0.0.1:1", Difficulty: 0}, transp, zap.NewNop())
	n.ctx = context.Background()
	return n
}

func TestHandleTxnNewThenDuplicate(t *testing.T) {
	n := newTestNode()
	txn := chain.NewTxn("A", "B", 7)

	status, err := n.handleTxn(txn)
	if err != nil {
		t.Fatalf("handleTxn: %v", err)
	}
	if status == nil || *status != "Transaction processed" {
		t.Fatalf("status = %v, want Transaction processed", status)
	}

	status, err = n.handleTxn(txn)
	if err != nil {
		t.Fatalf("handleTxn duplicate: %v", err)
	}
	if status != nil {
		t.Fatalf("duplicate status = %v, want nil", status)
	}
}

func TestHandleGetStateRecordsReceiverAsPeer(t *testing.T) {
	n := newTestNode()
	genesis := chain.NewBlock(0, chain.GenesisPreviousHash, nil, 0)
	genesis.Finalize()
	_ = n.chain.Extend(genesis)

	n.handleGetState(wire.GetStateMsg{Receiver: "127.0.0.1:2"})

	if n.peers.Len() != 1 {
		t.Fatalf("peers len = %d, want 1", n.peers.Len())
	}
}

func TestUpdateStateEvictsConfirmedTxnsBeforeMinerRestart(t *testing.T) {
	n := newTestNode()
	genesis := chain.NewBlock(0, chain.GenesisPreviousHash, nil, 0)
	genesis.Finalize()
	_ = n.chain.Extend(genesis)

	confirmed := chain.NewTxn("A", "B", 7)
	n.pool.Insert(confirmed)
	n.pool.Insert(chain.NewTxn("C", "D", 1))

	block := chain.NewBlock(1, genesis.Header.CurrentHash, []chain.Txn{confirmed}, 0)
	block.Finalize()
	n.handleMinedBlock(block)

	if n.pool.Len() != 1 {
		t.Fatalf("mempool len after update_state = %d, want 1", n.pool.Len())
	}
	for _, txn := range n.pool.Snapshot() {
		if txn.Equal(confirmed) {
			t.Fatal("confirmed txn must be evicted from mempool after update_state")
		}
	}
	if n.minerR == nil {
		t.Fatal("updateState must start a fresh miner")
	}
	n.minerR.Cancel()
}

func TestHandleShareStateRejectsMismatchedPreviousHash(t *testing.T) {
	n := newTestNode()
	genesis := chain.NewBlock(0, chain.GenesisPreviousHash, nil, 0)
	genesis.Finalize()
	_ = n.chain.Extend(genesis)

	bad := chain.NewBlock(1, "not-the-tip", nil, 0)
	bad.Finalize()

	n.handleShareState(wire.ShareStateMsg{
		From:  "127.0.0.1:2",
		State: []wire.WireBlock{wire.WireBlockFromBlock(genesis), wire.WireBlockFromBlock(bad)},
	})

	if n.chain.Len() != 1 {
		t.Fatalf("chain len = %d, want 1 (invalid extension should be rejected)", n.chain.Len())
	}
}

func TestHandleShareStateAdoptsLongerValidChain(t *testing.T) {
	n := newTestNode()
	peerChain := testutil.SampleChain(2)
	blocks := peerChain.AllBlocks()

	n.handleShareState(wire.ShareStateMsg{
		From:  "127.0.0.1:2",
		State: []wire.WireBlock{wire.WireBlockFromBlock(blocks[0]), wire.WireBlockFromBlock(blocks[1])},
	})

	if n.chain.Len() != 2 {
		t.Fatalf("chain len = %d, want 2 after adopting longer valid chain", n.chain.Len())
	}
	if n.minerR != nil {
		n.minerR.Cancel()
	}
}

func TestRunProcessesClientRequestEndToEnd(t *testing.T) {
	transp := transport.New(zap.NewNop())
	n := New(Config{Address: "127.0.0.1:3", Difficulty: 0}, transp, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const addr = "127.0.0.1:17391"
	if err := transp.ListenClients(ctx, addr); err != nil {
		t.Fatalf("ListenClients: %v", err)
	}
	go n.Run(ctx)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	payload, err := wire.EncodeTxn(testutil.SampleTxn())
	if err != nil {
		t.Fatalf("EncodeTxn: %v", err)
	}
	w := bufio.NewWriter(conn)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		t.Fatalf("write length prefix: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	r := bufio.NewReader(conn)
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		t.Fatalf("read reply length: %v", err)
	}
	replyLen := binary.BigEndian.Uint32(lenBuf[:])
	reply := make([]byte, replyLen)
	if _, err := io.ReadFull(r, reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply) != "Ok(Transaction processed)" {
		t.Fatalf("reply = %q, want Ok(Transaction processed)", reply)
	}
}
