package chain

import (
	"time"

	"github.com/brinklabs/pochain/internal/chainutil"
)

// BlockHeader carries everything needed to verify and chain a block.
type BlockHeader struct {
	Timestamp    uint64      `json:"timestamp"`
	Index        uint32      `json:"index"`
	PreviousHash string      `json:"previous_hash"`
	CurrentHash  string      `json:"current_hash"`
	CoinbaseTxn  CoinbaseTxn `json:"coinbase_txn"`
	MerkleRoot   string      `json:"merkle_root"`
	Nonce        uint32      `json:"nonce"`
	Difficulty   uint8       `json:"difficulty"`
}

// Body holds the ordered transaction list committed by a block.
type Body struct {
	TxnData []Txn `json:"txn_data"`
}

// Block is a header plus body unit.
type Block struct {
	Header BlockHeader `json:"header"`
	Body   Body        `json:"body"`
}

// NewBlock populates an unmined block: fresh timestamp, the given index and
// previous hash, empty current_hash/coinbase/merkle_root, nonce zero, and
// the configured difficulty. The miner fills in merkle_root, nonce,
// coinbase_txn and current_hash before publishing.
func NewBlock(index uint32, previousHash string, txns []Txn, difficulty uint8) *Block {
	return &Block{
		Header: BlockHeader{
			Timestamp:    uint64(time.Now().Unix()),
			Index:        index,
			PreviousHash: previousHash,
			CurrentHash:  "",
			CoinbaseTxn:  CoinbaseTxn{},
			MerkleRoot:   "",
			Nonce:        0,
			Difficulty:   difficulty,
		},
		Body: Body{TxnData: txns},
	}
}

// merkleLeaves adapts Body.TxnData to chainutil.MerkleLeaf.
func (b *Block) merkleLeaves() []chainutil.MerkleLeaf {
	leaves := make([]chainutil.MerkleLeaf, len(b.Body.TxnData))
	for i, t := range b.Body.TxnData {
		leaves[i] = t
	}
	return leaves
}

// txnHashers adapts Body.TxnData to chainutil.TxnHasher.
func (b *Block) txnHashers() []chainutil.TxnHasher {
	hashers := make([]chainutil.TxnHasher, len(b.Body.TxnData))
	for i, t := range b.Body.TxnData {
		hashers[i] = t
	}
	return hashers
}

// ComputeMerkleRoot returns merkle_root over the block's transaction list.
func (b *Block) ComputeMerkleRoot() string {
	return chainutil.MerkleRoot(b.merkleLeaves())
}

// Hash computes block_hash: the mining-target hash, distinct from the
// published current_hash (see Finalize).
func (b *Block) Hash() [32]byte {
	return chainutil.BlockHash(chainutil.BlockHashInput{
		Index:        b.Header.Index,
		PreviousHash: b.Header.PreviousHash,
		Difficulty:   b.Header.Difficulty,
		Timestamp:    b.Header.Timestamp,
		Nonce:        b.Header.Nonce,
		TxnDigest:    chainutil.HashTxns(b.txnHashers()),
	})
}

// MeetsTarget reports whether the block's hash satisfies its own difficulty.
func (b *Block) MeetsTarget() bool {
	return chainutil.MeetsTarget(b.Hash(), b.Header.Difficulty)
}

// Finalize stamps the fields a successful mine publishes: the coinbase
// reward, and current_hash computed as hex(sha256(canonical_json(block))) —
// deliberately different from Hash(), since current_hash is the published
// identifier other blocks' previous_hash link against.
func (b *Block) Finalize() {
	b.Header.CoinbaseTxn = NewCoinbase()
	b.Header.MerkleRoot = b.ComputeMerkleRoot()
	digest := chainutil.SHA256(chainutil.CanonicalJSON(b))
	b.Header.CurrentHash = chainutil.Hex(digest)
}
