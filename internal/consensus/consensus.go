// Package consensus holds the proof-of-work acceptance rule for a block that
// claims to succeed another.
package consensus

import (
	"errors"
	"fmt"

	"github.com/jmerrifield20/powchain/internal/chain"
)

// Rule failures, in the order CheckSuccessor evaluates them.
var (
	ErrIndexGap         = errors.New("index does not follow predecessor")
	ErrBrokenLink       = errors.New("previous hash does not match predecessor")
	ErrHashMismatch     = errors.New("stored hash does not match block contents")
	ErrInsufficientWork = errors.New("hash does not satisfy difficulty")
)

// ValidateSuccessor reports whether candidate legitimately follows prev at
// chain.Difficulty. Unlike Ledger.IsValid it also re-checks proof-of-work.
func ValidateSuccessor(prev, candidate *chain.Block) bool {
	return CheckSuccessor(prev, candidate, chain.Difficulty) == nil
}

// CheckSuccessor applies the rule in order and returns the first failure:
// index contiguity, hash linkage, self-hash consistency, then difficulty.
func CheckSuccessor(prev, candidate *chain.Block, difficulty int) error {
	if candidate.Index != prev.Index+1 {
		return fmt.Errorf("block %d: %w (prev %d)", candidate.Index, ErrIndexGap, prev.Index)
	}
	if candidate.PreviousHash != prev.Hash {
		return fmt.Errorf("block %d: %w", candidate.Index, ErrBrokenLink)
	}
	if candidate.RecomputeHash() != candidate.Hash {
		return fmt.Errorf("block %d: %w", candidate.Index, ErrHashMismatch)
	}
	if !chain.MeetsDifficulty(candidate.Hash, difficulty) {
		return fmt.Errorf("block %d: %w (need %d leading zeros)", candidate.Index, ErrInsufficientWork, difficulty)
	}
	return nil
}

// Violation records a pair of adjacent blocks that failed CheckSuccessor.
type Violation struct {
	Position int    `json:"position"`
	Index    uint64 `json:"index"`
	Reason   string `json:"reason"`
	err      error
}

// Unwrap exposes the sentinel so callers can match with errors.Is.
func (v Violation) Unwrap() error { return v.err }

func (v Violation) Error() string { return v.Reason }

// Audit checks every adjacent pair of blocks with CheckSuccessor and returns
// all failures in chain order. An empty result means the chain passes the
// strict rule.
func Audit(blocks []chain.Block, difficulty int) []Violation {
	var out []Violation
	for i := 1; i < len(blocks); i++ {
		if err := CheckSuccessor(&blocks[i-1], &blocks[i], difficulty); err != nil {
			out = append(out, Violation{
				Position: i,
				Index:    blocks[i].Index,
				Reason:   err.Error(),
				err:      err,
			})
		}
	}
	return out
}
