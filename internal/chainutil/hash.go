// Package chainutil holds the hashing and Merkle primitives shared by the
// chain, miner and wire packages.
package chainutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Hex lowercases-hex-encodes a digest.
func Hex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// CanonicalJSON marshals v using encoding/json's natural field order (the
// order fields are declared in the struct). Every type hashed by this
// package must keep that order stable across implementations.
func CanonicalJSON(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every hashed type in this module is a plain value type with no
		// cycles and no unsupported field types; a marshal error here
		// would be a programming error, not a runtime condition.
		panic(fmt.Sprintf("chainutil: canonical json: %v", err))
	}
	return b
}

// TxnHasher is implemented by values that can contribute a leaf hash to a
// Merkle tree or to the transaction-list rolling hash.
type TxnHasher interface {
	// TxnHash returns the hex-encoded SHA-256 over id‖sender‖receiver‖amount.
	TxnHash() string
}

// HashTxns implements hash_txns: a single element short-circuits to its own
// hash; otherwise each txn hash is fed sequentially into a running SHA-256.
func HashTxns(txns []TxnHasher) string {
	if len(txns) == 1 {
		return txns[0].TxnHash()
	}
	h := sha256.New()
	for _, t := range txns {
		h.Write([]byte(t.TxnHash()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MerkleLeaf is implemented by values that can be canonically serialized
// for inclusion as a Merkle leaf.
type MerkleLeaf interface {
	CanonicalBytes() []byte
}

// MerkleRoot computes a Bitcoin-style binary Merkle root over
// sha256(canonical_json(txn)) leaves.
func MerkleRoot(txns []MerkleLeaf) string {
	if len(txns) == 0 {
		empty := sha256.Sum256(nil)
		return hex.EncodeToString(empty[:])
	}

	level := make([]string, len(txns))
	for i, t := range txns {
		h := sha256.Sum256(t.CanonicalBytes())
		level[i] = hex.EncodeToString(h[:])
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]string, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := sha256.Sum256([]byte(level[i] + level[i+1]))
			next = append(next, hex.EncodeToString(h[:]))
		}
		level = next
	}
	return level[0]
}

// BlockHashInput carries exactly the fields block_hash is computed over.
type BlockHashInput struct {
	Index        uint32
	PreviousHash string
	Difficulty   uint8
	Timestamp    uint64
	Nonce        uint32
	TxnDigest    string
}

// BlockHash computes SHA-256 over the ASCII-decimal encodings of index,
// the raw bytes of previous_hash, ASCII-decimal difficulty, ASCII-decimal
// timestamp, ASCII-decimal nonce, and the ASCII bytes of the transaction
// digest, concatenated in that order. Order and encoding are the wire
// contract; every implementation must agree on them.
func BlockHash(in BlockHashInput) [32]byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, []byte(fmt.Sprintf("%d", in.Index))...)
	buf = append(buf, []byte(in.PreviousHash)...)
	buf = append(buf, []byte(fmt.Sprintf("%d", in.Difficulty))...)
	buf = append(buf, []byte(fmt.Sprintf("%d", in.Timestamp))...)
	buf = append(buf, []byte(fmt.Sprintf("%d", in.Nonce))...)
	buf = append(buf, []byte(in.TxnDigest)...)
	return sha256.Sum256(buf)
}

// MeetsTarget reports whether hash, read as a big-endian unsigned integer,
// has at least difficulty leading zero bits. Adapted from the big.Int
// comparison technique Bitcoin implementations use for compact nBits
// targets, here against a plain bit-count target: target = 2^(256-d)-1.
func MeetsTarget(hash [32]byte, difficulty uint8) bool {
	if difficulty == 0 {
		return true
	}
	target := new(big.Int).Lsh(big.NewInt(1), uint(256-int(difficulty)))
	target.Sub(target, big.NewInt(1))
	hashInt := new(big.Int).SetBytes(hash[:])
	return hashInt.Cmp(target) <= 0
}
