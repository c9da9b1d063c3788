package chain

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"

	"github.com/brinklabs/pochain/internal/chainutil"
)

// GenesisPreviousHash is the sentinel previous_hash carried by block 0.
const GenesisPreviousHash = "00000"

// Reward is the fixed coinbase amount credited for every mined block.
const Reward = 50

// Txn is a client-submitted transfer. It is immutable once constructed.
type Txn struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   uint32 `json:"amount"`
}

// NewTxn builds a Txn with a freshly computed id: SHA-256 over
// sender‖receiver‖amount‖random_u32.
func NewTxn(sender, receiver string, amount uint32) Txn {
	salt := rand.Uint32()
	buf := fmt.Sprintf("%s%s%d%d", sender, receiver, amount, salt)
	h := chainutil.SHA256([]byte(buf))
	return Txn{
		ID:       hex.EncodeToString(h[:]),
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
	}
}

// Equal reports structural equality over all four fields.
func (t Txn) Equal(other Txn) bool {
	return t.ID == other.ID &&
		t.Sender == other.Sender &&
		t.Receiver == other.Receiver &&
		t.Amount == other.Amount
}

// TxnHash returns the hex-encoded SHA-256 over id‖sender‖receiver‖ASCII(amount).
func (t Txn) TxnHash() string {
	buf := fmt.Sprintf("%s%s%s%d", t.ID, t.Sender, t.Receiver, t.Amount)
	h := chainutil.SHA256([]byte(buf))
	return hex.EncodeToString(h[:])
}

// CanonicalBytes returns the canonical JSON encoding used as a Merkle leaf.
func (t Txn) CanonicalBytes() []byte {
	return chainutil.CanonicalJSON(t)
}

// CoinbaseTxn is the per-block reward transaction, empty until mining
// succeeds.
type CoinbaseTxn struct {
	Amount    uint8  `json:"amount"`
	Validator string `json:"validator"`
}

// NewCoinbase mints the reward for a newly-finalized block, identifying the
// finder by a random decimal validator id (see DESIGN.md Open Question 3).
func NewCoinbase() CoinbaseTxn {
	return CoinbaseTxn{
		Amount:    Reward,
		Validator: fmt.Sprintf("0x%d", rand.Uint32()),
	}
}
