// Package node implements the single-threaded event loop that coordinates
// the miner, peer gossip, client intake and chain extension.
package node

import (
	"context"

	"go.uber.org/zap"

	"github.com/brinklabs/pochain/internal/chain"
	"github.com/brinklabs/pochain/internal/mempool"
	"github.com/brinklabs/pochain/internal/metrics"
	"github.com/brinklabs/pochain/internal/miner"
	"github.com/brinklabs/pochain/internal/peerset"
	"github.com/brinklabs/pochain/internal/transport"
	"github.com/brinklabs/pochain/internal/wire"
)

// Config carries the startup parameters the CLI entrypoint collects.
type Config struct {
	Address    string
	BootNode   string
	Difficulty uint8
}

// Node owns address, peers, mempool, chain and the current miner task. It
// is the sole writer to chain, mempool and peers; everything else reads
// through snapshots passed at task spawn.
type Node struct {
	address    string
	bootNode   string
	difficulty uint8

	ctx context.Context

	peers  *peerset.Set
	pool   *mempool.Mempool
	chain  *chain.Chain
	transp *transport.Transport
	minerR *miner.Runner
	logger *zap.Logger
}

// New constructs a Node. It does not start the event loop; call Run.
func New(cfg Config, transp *transport.Transport, logger *zap.Logger) *Node {
	return &Node{
		address:    cfg.Address,
		bootNode:   cfg.BootNode,
		difficulty: cfg.Difficulty,
		peers:      peerset.New(cfg.Address),
		pool:       mempool.New(),
		chain:      chain.New(),
		transp:     transp,
		logger:     logger,
	}
}

// Run executes the startup sequence and then the main select loop until
// ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	n.ctx = ctx
	metrics.Difficulty.Set(float64(n.difficulty))
	n.startup(ctx)

	for {
		select {
		case <-ctx.Done():
			if n.minerR != nil {
				n.minerR.Cancel()
			}
			return

		case res := <-n.minerAwait():
			n.handleMinedBlock(res.Block)

		case req := <-n.transp.ClientRequests():
			n.handleClientRequest(req)

		case req := <-n.transp.PeerRequests():
			n.handlePeerRequest(req)
		}
	}
}

// minerAwait returns the current miner's output channel, or a channel that
// never fires while no miner is running (should not normally happen once
// startup completes).
func (n *Node) minerAwait() <-chan miner.Result {
	if n.minerR == nil {
		return nil
	}
	return n.minerR.Output()
}

func (n *Node) startup(ctx context.Context) {
	if n.BootNodeConfigured() {
		n.peers.Insert(n.bootNode)
	}

	if n.chain.Len() == 0 {
		n.minerR = miner.StartGenesis(ctx, n.logger, n.difficulty)
	} else {
		tip, _ := n.chain.Tip()
		n.minerR = miner.Start(ctx, n.logger, n.pool.Snapshot(), tip)
	}

	n.bootstrap()
}

// BootNodeConfigured reports whether a boot-node address was configured.
// startup uses it to decide whether to record the boot node as a peer.
func (n *Node) BootNodeConfigured() bool {
	return n.bootNode != ""
}

// SetBootNode records the configured boot-node address, called by the CLI
// entrypoint before Run.
func (n *Node) SetBootNode(addr string) {
	n.bootNode = addr
}

func (n *Node) bootstrap() {
	if n.peers.Len() == 0 {
		return
	}
	msg := wire.GetStateMsg{Receiver: n.address}
	n.transp.Broadcast(n.peers.All(), msg)
}

func (n *Node) handleMinedBlock(block *chain.Block) {
	if err := n.chain.Extend(block); err != nil {
		// Stale parent: a peer chain was adopted while this block was
		// being mined. The miner has already been replaced; discard.
		n.logger.Debug("discarding stale mined block", zap.Uint32("index", block.Header.Index))
		return
	}
	metrics.BlocksMined.Inc()
	n.updateState()
}

func (n *Node) handleClientRequest(req transport.ClientRequest) {
	status, err := n.handleTxn(req.Txn)
	req.Reply <- transport.ClientResult{Status: status, Err: err}
}

func (n *Node) handlePeerRequest(req transport.PeerRequest) {
	req.Reply <- "Acknowledged"
	n.dispatch(req.Msg)
}

func (n *Node) dispatch(msg wire.Message) {
	switch m := msg.(type) {
	case wire.GetStateMsg:
		n.handleGetState(m)
	case wire.ShareStateMsg:
		n.handleShareState(m)
	case wire.TxnMsg:
		n.handleTxnMsg(m)
	default:
		n.logger.Warn("unhandled message variant", zap.Any("msg", m))
		metrics.PeerMessagesDropped.Inc()
	}
}

func (n *Node) handleGetState(m wire.GetStateMsg) {
	n.peers.Insert(m.Receiver)
	reply := wire.ShareStateFromChain(n.address, n.peers.All(), n.chain.AllBlocks())
	n.transp.Send(m.Receiver, reply)
}

func (n *Node) handleShareState(m wire.ShareStateMsg) {
	n.peers.Insert(m.From)
	n.peers.Extend(m.Peers)
	n.peers.Remove(n.address)

	if len(m.State) <= n.chain.Len() {
		return
	}

	newTip := m.State[len(m.State)-1].ToBlock()
	if n.chain.Len() == 0 {
		n.adoptChain(wireBlocksToChain(m.State))
		return
	}

	if err := n.chain.ValidateNewTip(newTip); err != nil {
		n.logger.Info("rejected peer chain", zap.Error(err))
		return
	}
	n.adoptChain(wireBlocksToChain(m.State))
}

func (n *Node) handleTxnMsg(m wire.TxnMsg) {
	n.handleTxn(m.ToTxn())
}

// handleTxn is the shared transaction-intake path for both client requests
// and node-to-node Txn gossip.
func (n *Node) handleTxn(t chain.Txn) (*string, error) {
	if !n.pool.Insert(t) {
		metrics.TxnsDuplicate.Inc()
		return nil, nil
	}
	metrics.TxnsAccepted.Inc()
	metrics.MempoolSize.Set(float64(n.pool.Len()))
	n.transp.Broadcast(n.peers.All(), wire.TxnMsgFromTxn(t))
	status := "Transaction processed"
	return &status, nil
}

func (n *Node) adoptChain(newChain *chain.Chain) {
	n.chain.ReplaceWith(newChain)
	n.updateState()
}

// updateState implements the §4.H ordering invariant: mempool eviction
// happens before the miner restarts, so the new miner can never reinclude
// a just-confirmed transaction.
func (n *Node) updateState() {
	tip, err := n.chain.Tip()
	if err != nil {
		return
	}

	n.pool.RetainNotIn(tip)
	metrics.MempoolSize.Set(float64(n.pool.Len()))
	metrics.ChainHeight.Set(float64(n.chain.Len()))
	metrics.PeersConnected.Set(float64(n.peers.Len()))

	announce := wire.ShareStateFromChain(n.address, n.peers.All(), n.chain.AllBlocks())
	n.transp.Broadcast(n.peers.All(), announce)

	if n.minerR != nil {
		n.minerR.Cancel()
	}
	n.minerR = miner.Start(n.ctx, n.logger, n.pool.Snapshot(), tip)
}

func wireBlocksToChain(blocks []wire.WireBlock) *chain.Chain {
	c := chain.New()
	for _, wb := range blocks {
		_ = c.Extend(wb.ToBlock())
	}
	return c
}
