package chain

import (
	"errors"
	"fmt"
)

const (
	// GenesisData is the payload of the genesis block.
	GenesisData = "Genesis Block"

	// GenesisPrevHash is the sentinel predecessor link of the genesis block.
	GenesisPrevHash = "0"
)

var (
	// ErrEmptyLedger is returned when a tail block is requested from a ledger
	// that holds no blocks.
	ErrEmptyLedger = errors.New("ledger has no blocks")

	// ErrBlockNotFound is returned for reads outside the ledger bounds.
	ErrBlockNotFound = errors.New("block not found")
)

// Ledger is an ordered, append-only sequence of blocks rooted at genesis.
// It owns its blocks: Append copies the candidate in and readers get copies out.
type Ledger struct {
	blocks []Block
}

// NewLedger creates a ledger holding a genesis block mined at Difficulty.
func NewLedger() *Ledger {
	return NewLedgerWithDifficulty(Difficulty)
}

// NewLedgerWithDifficulty creates a ledger whose genesis block is mined at
// the given difficulty.
func NewLedgerWithDifficulty(difficulty int) *Ledger {
	genesis := MineBlock(0, GenesisData, GenesisPrevHash, difficulty)
	return &Ledger{blocks: []Block{*genesis}}
}

// Append links candidate to the current tail and adds it to the ledger.
//
// PreviousHash is overwritten with the tail's hash and Hash is recomputed.
// The nonce is not searched again, so the stored hash may no longer satisfy
// the difficulty predicate. The candidate's index is kept as supplied.
func (l *Ledger) Append(candidate Block) error {
	tail, err := l.Latest()
	if err != nil {
		return fmt.Errorf("append block %d: %w", candidate.Index, err)
	}
	candidate.PreviousHash = tail.Hash
	candidate.Hash = candidate.RecomputeHash()
	l.blocks = append(l.blocks, candidate)
	return nil
}

// Latest returns a copy of the tail block.
func (l *Ledger) Latest() (Block, error) {
	if len(l.blocks) == 0 {
		return Block{}, ErrEmptyLedger
	}
	return l.blocks[len(l.blocks)-1], nil
}

// IsValid walks every adjacent pair and checks that each block's stored hash
// matches its fields and that it links to its predecessor's hash. Difficulty
// is not re-checked here; see consensus.ValidateSuccessor for the strict rule.
func (l *Ledger) IsValid() bool {
	for i := 1; i < len(l.blocks); i++ {
		prev, curr := &l.blocks[i-1], &l.blocks[i]
		if curr.Hash != curr.RecomputeHash() {
			return false
		}
		if curr.PreviousHash != prev.Hash {
			return false
		}
	}
	return true
}

// Len returns the number of blocks, genesis included.
func (l *Ledger) Len() int {
	return len(l.blocks)
}

// Block returns a copy of the block at position i.
func (l *Ledger) Block(i int) (Block, error) {
	if i < 0 || i >= len(l.blocks) {
		return Block{}, fmt.Errorf("index %d: %w", i, ErrBlockNotFound)
	}
	return l.blocks[i], nil
}

// Blocks returns a copy of the whole chain in order.
func (l *Ledger) Blocks() []Block {
	out := make([]Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}
