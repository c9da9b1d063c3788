// Package metrics exposes the node's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pochain",
		Name:      "chain_height",
		Help:      "Number of blocks in the node's current chain.",
	})

	MempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pochain",
		Name:      "mempool_size",
		Help:      "Number of pending transactions in the mempool.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pochain",
		Name:      "peers_connected",
		Help:      "Number of known peer addresses.",
	})

	Difficulty = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pochain",
		Name:      "difficulty",
		Help:      "Configured leading-zero-bit mining difficulty.",
	})

	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pochain",
		Name:      "blocks_mined_total",
		Help:      "Total blocks successfully mined and adopted by this node.",
	})

	TxnsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pochain",
		Name:      "txns_accepted_total",
		Help:      "Total newly accepted transactions, from clients or peer gossip.",
	})

	TxnsDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pochain",
		Name:      "txns_duplicate_total",
		Help:      "Total transactions, from clients or peer gossip, rejected as duplicates.",
	})

	PeerMessagesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pochain",
		Name:      "peer_messages_dropped_total",
		Help:      "Total peer messages dropped due to decode failure or rate limiting.",
	})
)

func init() {
	prometheus.MustRegister(
		ChainHeight,
		MempoolSize,
		PeersConnected,
		Difficulty,
		BlocksMined,
		TxnsAccepted,
		TxnsDuplicate,
		PeerMessagesDropped,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
