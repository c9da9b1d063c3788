// Command client submits a transaction to a running node's client port.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/brinklabs/pochain/internal/chain"
	"github.com/brinklabs/pochain/internal/wire"
)

func main() {
	address := flag.String("address", "127.0.0.1", "node address")
	port := flag.Int("port", 7291, "node client port")
	flag.Parse()

	args := flag.Args()
	if len(args) != 4 || args[0] != "txn" {
		fmt.Fprintln(os.Stderr, "usage: client [--address IP] [--port PORT] txn <sender> <receiver> <amount>")
		os.Exit(1)
	}

	sender, receiver := args[1], args[2]
	amount, err := strconv.ParseUint(args[3], 10, 32)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pochain-client: invalid amount %q: %v\n", args[3], err)
		os.Exit(1)
	}

	txn := chain.NewTxn(sender, receiver, uint32(amount))
	if err := sendTxn(*address, *port, txn); err != nil {
		fmt.Fprintf(os.Stderr, "pochain-client: %v\n", err)
		os.Exit(1)
	}
}

func sendTxn(address string, port int, txn chain.Txn) error {
	target := fmt.Sprintf("%s:%d", address, port)
	conn, err := net.Dial("tcp", target)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", target, err)
	}
	defer conn.Close()

	payload, err := wire.EncodeTxn(txn)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	w := bufio.NewWriter(conn)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	r := bufio.NewReader(conn)
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return fmt.Errorf("receive reply: %w", err)
	}
	replyLen := binary.BigEndian.Uint32(lenBuf[:])
	reply := make([]byte, replyLen)
	if _, err := io.ReadFull(r, reply); err != nil {
		return fmt.Errorf("receive reply: %w", err)
	}

	fmt.Println(string(reply))
	return nil
}
