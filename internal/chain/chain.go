package chain

import "fmt"

// ErrInvalidExtension is returned by Extend when the candidate block does
// not attach to the current tip.
var ErrInvalidExtension = fmt.Errorf("chain: invalid extension")

// Chain is an ordered sequence of blocks with an extension rule. The node
// event loop is the sole mutator; Chain itself does no locking.
type Chain struct {
	blocks []*Block
}

// New returns an empty chain.
func New() *Chain {
	return &Chain{}
}

// Len reports the number of blocks held.
func (c *Chain) Len() int {
	return len(c.blocks)
}

// Tip returns the last block; its Header.CurrentHash is the chain's tip
// hash. Fails if the chain is empty.
func (c *Chain) Tip() (*Block, error) {
	if len(c.blocks) == 0 {
		return nil, fmt.Errorf("chain: empty, no tip")
	}
	return c.blocks[len(c.blocks)-1], nil
}

// Extend is the only mutation: it succeeds iff the chain is empty (the
// candidate is genesis) or block.Header.PreviousHash equals the current
// tip's CurrentHash. It does not re-verify PoW or the Merkle root — that is
// the caller's job at gossip-adoption time.
func (c *Chain) Extend(block *Block) error {
	if len(c.blocks) == 0 {
		c.blocks = append(c.blocks, block)
		return nil
	}
	tip := c.blocks[len(c.blocks)-1]
	if block.Header.PreviousHash != tip.Header.CurrentHash {
		return ErrInvalidExtension
	}
	c.blocks = append(c.blocks, block)
	return nil
}

// AllBlocks returns read access to the full block sequence, for gossip.
func (c *Chain) AllBlocks() []*Block {
	return c.blocks
}

// Clone returns a chain sharing the same block pointers but an independent
// backing slice, so a ShareState payload can be replaced wholesale without
// aliasing the sender's slice.
func (c *Chain) Clone() *Chain {
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return &Chain{blocks: out}
}

// ValidateNewTip implements the §4.H single-tip extension check used when
// adopting a peer's announced chain: the new tip's Merkle root must match
// its header, its index must be exactly one past the current tip's, and its
// previous_hash must equal the current tip's current_hash.
func (c *Chain) ValidateNewTip(newTip *Block) error {
	curTip, err := c.Tip()
	if err != nil {
		return err
	}
	if newTip.ComputeMerkleRoot() != newTip.Header.MerkleRoot {
		return fmt.Errorf("chain: merkle root mismatch on candidate tip")
	}
	if newTip.Header.Index != curTip.Header.Index+1 {
		return fmt.Errorf("chain: candidate tip index %d is not %d+1", newTip.Header.Index, curTip.Header.Index)
	}
	if newTip.Header.PreviousHash != curTip.Header.CurrentHash {
		return fmt.Errorf("chain: candidate tip previous_hash does not match current tip")
	}
	return nil
}

// ReplaceWith assigns new as the chain's contents wholesale, used by
// update_state when adopting a longer peer chain.
func (c *Chain) ReplaceWith(new *Chain) {
	c.blocks = new.blocks
}
