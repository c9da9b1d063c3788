package wire

import (
	"testing"

	"github.com/brinklabs/pochain/internal/chain"
)

func TestEncodeDecodeTxnRoundTrip(t *testing.T) {
	msg := TxnMsgFromTxn(chain.NewTxn("A", "B", 7))
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if VariantTag(data[0]) != VariantTxn {
		t.Fatalf("tag = %d, want %d", data[0], VariantTxn)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(TxnMsg)
	if !ok {
		t.Fatalf("decoded type = %T, want TxnMsg", decoded)
	}
	if got != msg {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, msg)
	}
}

func TestEncodeDecodeShareStateRoundTrip(t *testing.T) {
	genesis := chain.NewBlock(0, chain.GenesisPreviousHash, nil, 0)
	genesis.Finalize()

	msg := ShareStateFromChain("127.0.0.1:7192", []string{"127.0.0.1:7193"}, []*chain.Block{genesis})
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := decoded.(ShareStateMsg)
	if !ok {
		t.Fatalf("decoded type = %T, want ShareStateMsg", decoded)
	}
	if got.From != msg.From || len(got.State) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.State[0].ToBlock().Header.CurrentHash != genesis.Header.CurrentHash {
		t.Fatal("wire block round trip lost current_hash")
	}
}

func TestDecodeUnknownVariant(t *testing.T) {
	_, err := Decode([]byte{0xff, 0x00})
	if err == nil {
		t.Fatal("expected error for unknown variant tag")
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	_, err := Decode(nil)
	if err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func TestClientTxnFrameIsTagless(t *testing.T) {
	txn := chain.NewTxn("A", "B", 3)
	data, err := EncodeTxn(txn)
	if err != nil {
		t.Fatalf("EncodeTxn: %v", err)
	}
	got, err := DecodeTxn(data)
	if err != nil {
		t.Fatalf("DecodeTxn: %v", err)
	}
	if !got.Equal(txn) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, txn)
	}
}
