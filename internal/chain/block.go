package chain

import (
	"strconv"
	"strings"
	"time"
)

// Difficulty is the number of leading '0' hex characters a mined hash must have.
const Difficulty = 4

// Block is a single ledger record together with its proof-of-work solution.
type Block struct {
	Index        uint64 `json:"index"`
	Timestamp    int64  `json:"timestamp"`
	Data         string `json:"data"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
}

// NewBlock stamps the current time and mines a block at Difficulty.
func NewBlock(index uint64, data, previousHash string) *Block {
	return MineBlock(index, data, previousHash, Difficulty)
}

// MineBlock stamps the current time and searches nonces from zero until the
// block hash satisfies difficulty. The search has no upper bound.
func MineBlock(index uint64, data, previousHash string, difficulty int) *Block {
	b := &Block{
		Index:        index,
		Timestamp:    time.Now().Unix(),
		Data:         data,
		PreviousHash: previousHash,
	}
	for {
		hash := b.RecomputeHash()
		if MeetsDifficulty(hash, difficulty) {
			b.Hash = hash
			return b
		}
		b.Nonce++
	}
}

// RecomputeHash returns the digest of the block's current fields. It never
// reads b.Hash, so any mutation after mining shows up as a mismatch.
func (b *Block) RecomputeHash() string {
	return Digest(hashInput(b))
}

// Attempts is the number of digests the miner evaluated to find Nonce.
func (b *Block) Attempts() uint64 {
	return b.Nonce + 1
}

// hashInput concatenates the hashed fields without separators.
func hashInput(b *Block) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.Index, 10))
	sb.WriteString(strconv.FormatInt(b.Timestamp, 10))
	sb.WriteString(b.Data)
	sb.WriteString(b.PreviousHash)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))
	return sb.String()
}

// MeetsDifficulty reports whether hash starts with difficulty '0' characters.
// A difficulty of zero or less accepts any hash.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}
