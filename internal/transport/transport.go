// Package transport implements the length-delimited TCP framing described
// in the wire protocol: a 4-byte big-endian length prefix followed by a
// (optionally zstd-compressed) payload, over one persistent connection per
// peer.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/brinklabs/pochain/internal/chain"
	"github.com/brinklabs/pochain/internal/metrics"
	"github.com/brinklabs/pochain/internal/wire"
)

// outboundQueueSize bounds the per-peer buffered send queue.
const outboundQueueSize = 256

// PeerRequest is delivered to the node for every frame received on the
// peer listener, alongside a one-shot reply channel.
type PeerRequest struct {
	Msg   wire.Message
	Reply chan<- string
}

// ClientResult is the node's answer to a client-submitted transaction:
// Status carries a user-visible message for a newly accepted Txn, nil for
// a duplicate, and Err is set on handler failure.
type ClientResult struct {
	Status *string
	Err    error
}

// ClientRequest is delivered to the node for every frame received on the
// client listener.
type ClientRequest struct {
	Txn   chain.Txn
	Reply chan<- ClientResult
}

// Transport owns the two inbound listeners and the outbound connection
// pool. The node is the sole consumer of PeerRequests/ClientRequests; this
// type does no protocol interpretation of its own.
type Transport struct {
	logger *zap.Logger

	peerRequests   chan PeerRequest
	clientRequests chan ClientRequest

	mu    sync.Mutex
	peers map[string]*peerConn

	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// New returns a Transport whose inbound request channels are buffered (256
// entries each); call ListenPeers and ListenClients to bind and start
// accepting.
func New(logger *zap.Logger) *Transport {
	return &Transport{
		logger:         logger,
		peerRequests:   make(chan PeerRequest, 256),
		clientRequests: make(chan ClientRequest, 256),
		peers:          make(map[string]*peerConn),
		limiters:       make(map[string]*rate.Limiter),
	}
}

// PeerRequests returns the channel of inbound peer frames.
func (t *Transport) PeerRequests() <-chan PeerRequest {
	return t.peerRequests
}

// ClientRequests returns the channel of inbound client transactions.
func (t *Transport) ClientRequests() <-chan ClientRequest {
	return t.clientRequests
}

// ListenPeers binds the peer listener and accepts connections until ctx is
// cancelled.
func (t *Transport) ListenPeers(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: bind peer listener on %s: %w", addr, err)
	}
	t.logger.Info("peer listener started", zap.String("addr", addr))
	go t.acceptLoop(ctx, ln, t.servePeerConn)
	return nil
}

// ListenClients binds the client listener and accepts connections until
// ctx is cancelled.
func (t *Transport) ListenClients(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: bind client listener on %s: %w", addr, err)
	}
	t.logger.Info("client listener started", zap.String("addr", addr))
	go t.acceptLoop(ctx, ln, t.serveClientConn)
	return nil
}

func (t *Transport) acceptLoop(ctx context.Context, ln net.Listener, serve func(context.Context, net.Conn)) {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn("accept failed", zap.Error(err))
			continue
		}
		go serve(ctx, conn)
	}
}

func (t *Transport) servePeerConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	limiter := t.limiterFor(remote)

	for {
		payload, err := readFrame(r)
		if err != nil {
			t.logger.Debug("peer connection closed", zap.String("peer", remote), zap.Error(err))
			return
		}
		if !limiter.Allow() {
			t.logger.Warn("peer rate limited", zap.String("peer", remote))
			metrics.PeerMessagesDropped.Inc()
			continue
		}
		decompressed, err := decompressPayload(payload)
		if err != nil {
			t.logger.Warn("decompress failed", zap.String("peer", remote), zap.Error(err))
			metrics.PeerMessagesDropped.Inc()
			continue
		}
		msg, err := wire.Decode(decompressed)
		if err != nil {
			t.logger.Warn("decode failed", zap.String("peer", remote), zap.Error(err))
			metrics.PeerMessagesDropped.Inc()
			continue
		}

		reply := make(chan string, 1)
		select {
		case t.peerRequests <- PeerRequest{Msg: msg, Reply: reply}:
		case <-ctx.Done():
			return
		}

		select {
		case ack := <-reply:
			if err := writeFrame(w, []byte(ack)); err != nil {
				t.logger.Debug("ack write failed", zap.String("peer", remote), zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *Transport) serveClientConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	payload, err := readFrame(r)
	if err != nil {
		t.logger.Debug("client connection closed before a frame arrived", zap.String("client", remote), zap.Error(err))
		return
	}
	txn, err := wire.DecodeTxn(payload)
	if err != nil {
		t.logger.Warn("client frame decode failed", zap.String("client", remote), zap.Error(err))
		writeFrame(w, []byte(fmt.Sprintf("Err(%s)", err)))
		return
	}

	reply := make(chan ClientResult, 1)
	select {
	case t.clientRequests <- ClientRequest{Txn: txn, Reply: reply}:
	case <-ctx.Done():
		return
	}

	select {
	case res := <-reply:
		writeFrame(w, []byte(formatClientResult(res)))
	case <-ctx.Done():
	}
}

func formatClientResult(res ClientResult) string {
	if res.Err != nil {
		return fmt.Sprintf("Err(%s)", res.Err)
	}
	if res.Status == nil {
		return "Ok(None)"
	}
	return fmt.Sprintf("Ok(%s)", *res.Status)
}

func (t *Transport) limiterFor(remote string) *rate.Limiter {
	t.limitersMu.Lock()
	defer t.limitersMu.Unlock()
	if lim, ok := t.limiters[remote]; ok {
		return lim
	}
	if len(t.limiters) >= 500 {
		for addr := range t.limiters {
			delete(t.limiters, addr)
			break
		}
	}
	lim := rate.NewLimiter(50, 100)
	t.limiters[remote] = lim
	return lim
}

// Send dials-or-reuses a pooled connection to addr and writes msg as a
// framed, tagged message. Dial failure is logged; the caller (the node)
// keeps addr in its peer set regardless, since this spec has no
// fault-detector eviction.
func (t *Transport) Send(addr string, msg wire.Message) {
	data, err := wire.Encode(msg)
	if err != nil {
		t.logger.Warn("encode failed", zap.String("peer", addr), zap.Error(err))
		return
	}
	t.enqueue(addr, compressPayload(data))
}

// Broadcast sends msg to every address in addrs.
func (t *Transport) Broadcast(addrs []string, msg wire.Message) {
	for _, addr := range addrs {
		t.Send(addr, msg)
	}
}

func (t *Transport) enqueue(addr string, payload []byte) {
	t.mu.Lock()
	pc, ok := t.peers[addr]
	if !ok {
		pc = newPeerConn(addr, t.logger)
		t.peers[addr] = pc
	}
	t.mu.Unlock()
	pc.enqueue(payload)
}

// peerConn owns one lazily-dialed outbound connection and its buffered
// send queue, mirroring the prototype's per-peer mpsc channel pool.
type peerConn struct {
	addr   string
	logger *zap.Logger
	out    chan []byte

	mu   sync.Mutex
	conn net.Conn
}

func newPeerConn(addr string, logger *zap.Logger) *peerConn {
	pc := &peerConn{
		addr:   addr,
		logger: logger,
		out:    make(chan []byte, outboundQueueSize),
	}
	go pc.run()
	return pc
}

func (pc *peerConn) enqueue(payload []byte) {
	select {
	case pc.out <- payload:
	default:
		pc.logger.Warn("outbound queue full, dropping message", zap.String("peer", pc.addr))
	}
}

func (pc *peerConn) run() {
	for payload := range pc.out {
		conn, err := pc.dialIfNeeded()
		if err != nil {
			pc.logger.Warn("failed to connect", zap.String("peer", pc.addr), zap.Error(err))
			continue
		}
		w := bufio.NewWriter(conn)
		if err := writeFrame(w, payload); err != nil {
			pc.logger.Warn("failed to send", zap.String("peer", pc.addr), zap.Error(err))
			pc.resetConn()
		}
	}
}

func (pc *peerConn) dialIfNeeded() (net.Conn, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.conn != nil {
		return pc.conn, nil
	}
	conn, err := net.Dial("tcp", pc.addr)
	if err != nil {
		return nil, err
	}
	pc.conn = conn
	return conn, nil
}

func (pc *peerConn) resetConn() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.conn != nil {
		pc.conn.Close()
		pc.conn = nil
	}
}
