package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/brinklabs/pochain/internal/chain"
	"github.com/brinklabs/pochain/internal/wire"
)

func TestPeerListenerDeliversAndAcks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := New(zap.NewNop())
	const addr = "127.0.0.1:17192"
	if err := tr.ListenPeers(ctx, addr); err != nil {
		t.Fatalf("ListenPeers: %v", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := wire.GetStateMsg{Receiver: "127.0.0.1:9999"}
	data, err := wire.Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	w := bufio.NewWriter(conn)
	if err := writeFrame(w, data); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	select {
	case req := <-tr.PeerRequests():
		got, ok := req.Msg.(wire.GetStateMsg)
		if !ok {
			t.Fatalf("delivered type = %T, want GetStateMsg", req.Msg)
		}
		if got.Receiver != msg.Receiver {
			t.Fatalf("receiver = %q, want %q", got.Receiver, msg.Receiver)
		}
		req.Reply <- "Acknowledged"
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for peer request delivery")
	}

	r := bufio.NewReader(conn)
	ack, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame ack: %v", err)
	}
	if string(ack) != "Acknowledged" {
		t.Fatalf("ack = %q, want Acknowledged", ack)
	}
}

func TestClientListenerDeliversTxnAndReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := New(zap.NewNop())
	const addr = "127.0.0.1:17291"
	if err := tr.ListenClients(ctx, addr); err != nil {
		t.Fatalf("ListenClients: %v", err)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	txn := chain.NewTxn("A", "B", 7)
	payload, err := wire.EncodeTxn(txn)
	if err != nil {
		t.Fatalf("EncodeTxn: %v", err)
	}
	w := bufio.NewWriter(conn)
	if err := writeFrame(w, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	select {
	case req := <-tr.ClientRequests():
		if !req.Txn.Equal(txn) {
			t.Fatalf("delivered txn mismatch: got %+v, want %+v", req.Txn, txn)
		}
		status := "Transaction processed"
		req.Reply <- ClientResult{Status: &status}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client request delivery")
	}

	r := bufio.NewReader(conn)
	reply, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame reply: %v", err)
	}
	if string(reply) != "Ok(Transaction processed)" {
		t.Fatalf("reply = %q, want Ok(Transaction processed)", reply)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf connBuffer
	w := bufio.NewWriter(&buf)
	if err := writeFrame(w, []byte("hello")); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	r := bufio.NewReader(&buf)
	got, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want hello", got)
	}
}

// connBuffer is a minimal in-memory io.ReadWriter for frame round-trip
// tests that don't need a real socket.
type connBuffer struct {
	data []byte
}

func (b *connBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *connBuffer) Read(p []byte) (int, error) {
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}
