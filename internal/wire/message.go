// Package wire defines the node↔node and client↔node message variants and
// their tagged CBOR encoding: a 1-byte variant tag followed by a
// CBOR-encoded payload.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/brinklabs/pochain/internal/chain"
)

// VariantTag identifies which payload shape follows in a node↔node frame.
type VariantTag uint8

const (
	VariantTxn         VariantTag = 1
	VariantGetState    VariantTag = 2
	VariantShareState  VariantTag = 3
)

// Message is implemented by every node↔node wire variant.
type Message interface {
	Variant() VariantTag
}

// TxnMsg carries a transfer, client→node or node→peers.
type TxnMsg struct {
	ID       string `cbor:"1,keyasint"`
	Sender   string `cbor:"2,keyasint"`
	Receiver string `cbor:"3,keyasint"`
	Amount   uint32 `cbor:"4,keyasint"`
}

func (TxnMsg) Variant() VariantTag { return VariantTxn }

// ToTxn converts the wire form to a chain.Txn value.
func (m TxnMsg) ToTxn() chain.Txn {
	return chain.Txn{ID: m.ID, Sender: m.Sender, Receiver: m.Receiver, Amount: m.Amount}
}

// TxnMsgFromTxn converts a chain.Txn into its wire form.
func TxnMsgFromTxn(t chain.Txn) TxnMsg {
	return TxnMsg{ID: t.ID, Sender: t.Sender, Receiver: t.Receiver, Amount: t.Amount}
}

// GetStateMsg is sent node→peer at bootstrap to request current chain state.
type GetStateMsg struct {
	Receiver string `cbor:"1,keyasint"`
}

func (GetStateMsg) Variant() VariantTag { return VariantGetState }

// ShareStateMsg is the peer→node reply, and node→peers after a chain
// update: the sender's address, its known peers, and its full chain.
type ShareStateMsg struct {
	From  string         `cbor:"1,keyasint"`
	Peers []string       `cbor:"2,keyasint"`
	State []WireBlock    `cbor:"3,keyasint"`
}

func (ShareStateMsg) Variant() VariantTag { return VariantShareState }

// WireBlock is the CBOR-friendly mirror of chain.Block: identical fields,
// laid out with keyasint tags for compact encoding.
type WireBlock struct {
	Timestamp    uint64         `cbor:"1,keyasint"`
	Index        uint32         `cbor:"2,keyasint"`
	PreviousHash string         `cbor:"3,keyasint"`
	CurrentHash  string         `cbor:"4,keyasint"`
	CoinbaseAmt  uint8          `cbor:"5,keyasint"`
	CoinbaseVal  string         `cbor:"6,keyasint"`
	MerkleRoot   string         `cbor:"7,keyasint"`
	Nonce        uint32         `cbor:"8,keyasint"`
	Difficulty   uint8          `cbor:"9,keyasint"`
	TxnData      []TxnMsg       `cbor:"10,keyasint"`
}

// WireBlockFromBlock converts a chain.Block to its wire mirror.
func WireBlockFromBlock(b *chain.Block) WireBlock {
	txns := make([]TxnMsg, len(b.Body.TxnData))
	for i, t := range b.Body.TxnData {
		txns[i] = TxnMsgFromTxn(t)
	}
	return WireBlock{
		Timestamp:    b.Header.Timestamp,
		Index:        b.Header.Index,
		PreviousHash: b.Header.PreviousHash,
		CurrentHash:  b.Header.CurrentHash,
		CoinbaseAmt:  b.Header.CoinbaseTxn.Amount,
		CoinbaseVal:  b.Header.CoinbaseTxn.Validator,
		MerkleRoot:   b.Header.MerkleRoot,
		Nonce:        b.Header.Nonce,
		Difficulty:   b.Header.Difficulty,
		TxnData:      txns,
	}
}

// ToBlock converts a wire block back to a chain.Block.
func (w WireBlock) ToBlock() *chain.Block {
	txns := make([]chain.Txn, len(w.TxnData))
	for i, t := range w.TxnData {
		txns[i] = t.ToTxn()
	}
	return &chain.Block{
		Header: chain.BlockHeader{
			Timestamp:    w.Timestamp,
			Index:        w.Index,
			PreviousHash: w.PreviousHash,
			CurrentHash:  w.CurrentHash,
			CoinbaseTxn:  chain.CoinbaseTxn{Amount: w.CoinbaseAmt, Validator: w.CoinbaseVal},
			MerkleRoot:   w.MerkleRoot,
			Nonce:        w.Nonce,
			Difficulty:   w.Difficulty,
		},
		Body: chain.Body{TxnData: txns},
	}
}

// ShareStateFromChain builds a ShareStateMsg over a full chain snapshot.
func ShareStateFromChain(from string, peers []string, blocks []*chain.Block) ShareStateMsg {
	state := make([]WireBlock, len(blocks))
	for i, b := range blocks {
		state[i] = WireBlockFromBlock(b)
	}
	return ShareStateMsg{From: from, Peers: peers, State: state}
}

// Encode serializes msg as a 1-byte variant tag followed by its CBOR
// payload.
func Encode(msg Message) ([]byte, error) {
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, byte(msg.Variant()))
	out = append(out, payload...)
	return out, nil
}

// Decode reads the variant tag and unmarshals the remainder into the
// matching Message type. An unknown tag or malformed payload is returned
// as an error; the caller logs and drops, per the decode-error policy.
func Decode(data []byte) (Message, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("wire: empty frame")
	}
	tag := VariantTag(data[0])
	payload := data[1:]

	switch tag {
	case VariantTxn:
		var m TxnMsg
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decode txn: %w", err)
		}
		return m, nil
	case VariantGetState:
		var m GetStateMsg
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decode getstate: %w", err)
		}
		return m, nil
	case VariantShareState:
		var m ShareStateMsg
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, fmt.Errorf("wire: decode sharestate: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("wire: unknown variant tag %d", tag)
	}
}

// EncodeTxn serializes a bare TxnMsg with no variant tag, for the
// always-Txn-shaped client→node frames described in §6.
func EncodeTxn(t chain.Txn) ([]byte, error) {
	return cbor.Marshal(TxnMsgFromTxn(t))
}

// DecodeTxn decodes a bare, tagless client→node Txn frame.
func DecodeTxn(data []byte) (chain.Txn, error) {
	var m TxnMsg
	if err := cbor.Unmarshal(data, &m); err != nil {
		return chain.Txn{}, fmt.Errorf("wire: decode client txn: %w", err)
	}
	return m.ToTxn(), nil
}
