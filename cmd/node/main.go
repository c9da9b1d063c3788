// Command node runs a single minimal peer-to-peer blockchain node.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/brinklabs/pochain/internal/metrics"
	"github.com/brinklabs/pochain/internal/node"
	"github.com/brinklabs/pochain/internal/transport"
)

func main() {
	serverPort := flag.Int("server-port", 7192, "peer listener port")
	clientPort := flag.Int("client-port", 7291, "client listener port")
	address := flag.String("address", "127.0.0.1", "address this node binds and advertises")
	bootNode := flag.String("boot-node", "", "optional boot peer, IP:PORT")
	difficulty := flag.Int("difficulty", 16, "leading zero bits required of a mined block hash")
	metricsAddr := flag.String("metrics-addr", "", "optional address to serve Prometheus /metrics on")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pochain-node: logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *difficulty < 0 || *difficulty > 255 {
		logger.Error("difficulty out of range", zap.Int("difficulty", *difficulty))
		os.Exit(1)
	}

	selfAddr := fmt.Sprintf("%s:%d", *address, *serverPort)
	peerListenAddr := fmt.Sprintf("%s:%d", *address, *serverPort)
	clientListenAddr := fmt.Sprintf("%s:%d", *address, *clientPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transp := transport.New(logger)
	if err := transp.ListenPeers(ctx, peerListenAddr); err != nil {
		logger.Error("failed to bind peer listener", zap.Error(err))
		os.Exit(1)
	}
	if err := transp.ListenClients(ctx, clientListenAddr); err != nil {
		logger.Error("failed to bind client listener", zap.Error(err))
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			logger.Info("metrics endpoint started", zap.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	n := node.New(node.Config{
		Address:    selfAddr,
		Difficulty: uint8(*difficulty),
	}, transp, logger)
	if *bootNode != "" {
		n.SetBootNode(*bootNode)
	}

	logger.Info("node starting",
		zap.String("address", selfAddr),
		zap.Int("difficulty", *difficulty),
		zap.String("boot_node", *bootNode),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	n.Run(ctx)
}
