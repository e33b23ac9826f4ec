// Package node owns the process-wide ledger and serialises access to it.
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmerrifield20/powchain/internal/chain"
	"github.com/jmerrifield20/powchain/internal/consensus"
	"go.uber.org/zap"
)

// AppendFunc observes a block after it has been appended. elapsed is the time
// spent mining it.
type AppendFunc func(b chain.Block, elapsed time.Duration)

// Report is the outcome of Verify.
type Report struct {
	// Valid is the ledger's own link and self-hash check.
	Valid bool `json:"valid"`
	// PoWValid additionally requires every successor to meet the difficulty.
	PoWValid   bool                  `json:"pow_valid"`
	Length     int                   `json:"length"`
	Violations []consensus.Violation `json:"violations"`
}

// Node guards a single ledger with one lock.
type Node struct {
	mu         sync.RWMutex
	ledger     *chain.Ledger
	difficulty int

	obsMu     sync.Mutex
	observers []AppendFunc

	// Appends take a ticket under mu; observers run strictly in ticket order.
	tickets    uint64
	dispatchMu sync.Mutex
	dispatch   *sync.Cond
	dispatched uint64

	logger *zap.Logger
}

// New creates a Node with a fresh ledger whose blocks are mined at difficulty.
func New(difficulty int, logger *zap.Logger) *Node {
	start := time.Now()
	l := chain.NewLedgerWithDifficulty(difficulty)
	genesis, _ := l.Latest()
	logger.Info("genesis block mined",
		zap.String("hash", genesis.Hash),
		zap.Uint64("nonce", genesis.Nonce),
		zap.Int("difficulty", difficulty),
		zap.Duration("elapsed", time.Since(start)),
	)
	n := &Node{ledger: l, difficulty: difficulty, logger: logger}
	n.dispatch = sync.NewCond(&n.dispatchMu)
	return n
}

// Difficulty returns the number of leading zeros blocks are mined to.
func (n *Node) Difficulty() int { return n.difficulty }

// OnAppend registers fn to run after every successful Submit. Observers run
// outside the ledger lock, in registration order, and see blocks in chain
// order. An observer must not call Submit.
func (n *Node) OnAppend(fn AppendFunc) {
	n.obsMu.Lock()
	defer n.obsMu.Unlock()
	n.observers = append(n.observers, fn)
}

// Submit mines a block carrying data on top of the current tail and appends
// it. The write lock is held for the whole mining run, so concurrent readers
// and writers wait until the block is in place.
func (n *Node) Submit(_ context.Context, data string) (chain.Block, error) {
	n.mu.Lock()
	tail, err := n.ledger.Latest()
	if err != nil {
		n.mu.Unlock()
		return chain.Block{}, fmt.Errorf("submit: %w", err)
	}

	start := time.Now()
	candidate := chain.MineBlock(uint64(n.ledger.Len()), data, tail.Hash, n.difficulty)
	elapsed := time.Since(start)

	if err := n.ledger.Append(*candidate); err != nil {
		n.mu.Unlock()
		return chain.Block{}, fmt.Errorf("submit: %w", err)
	}
	appended, err := n.ledger.Latest()
	ticket := n.tickets
	n.tickets++
	n.mu.Unlock()
	if err != nil {
		n.notify(ticket, nil, elapsed)
		return chain.Block{}, fmt.Errorf("submit: %w", err)
	}

	n.logger.Debug("block appended",
		zap.Uint64("index", appended.Index),
		zap.String("hash", appended.Hash),
		zap.Uint64("nonce", appended.Nonce),
		zap.Duration("mining", elapsed),
	)

	n.notify(ticket, &appended, elapsed)
	return appended, nil
}

// notify waits for every earlier ticket to be dispatched, then runs the
// observers for b. A nil b only advances the ticket.
func (n *Node) notify(ticket uint64, b *chain.Block, elapsed time.Duration) {
	n.dispatchMu.Lock()
	for n.dispatched != ticket {
		n.dispatch.Wait()
	}
	n.dispatchMu.Unlock()

	defer func() {
		n.dispatchMu.Lock()
		n.dispatched++
		n.dispatch.Broadcast()
		n.dispatchMu.Unlock()
	}()

	if b == nil {
		return
	}
	n.obsMu.Lock()
	observers := append([]AppendFunc(nil), n.observers...)
	n.obsMu.Unlock()
	for _, fn := range observers {
		fn(*b, elapsed)
	}
}

// Blocks returns a snapshot of the chain.
func (n *Node) Blocks() []chain.Block {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.Blocks()
}

// Latest returns the tail block.
func (n *Node) Latest() (chain.Block, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.Latest()
}

// Block returns the block at position i.
func (n *Node) Block(i int) (chain.Block, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.Block(i)
}

// Len returns the chain length.
func (n *Node) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.Len()
}

// Verify runs both the ledger's own check and the strict successor audit.
func (n *Node) Verify() Report {
	n.mu.RLock()
	valid := n.ledger.IsValid()
	blocks := n.ledger.Blocks()
	n.mu.RUnlock()

	violations := consensus.Audit(blocks, n.difficulty)
	if violations == nil {
		violations = []consensus.Violation{}
	}
	return Report{
		Valid:      valid,
		PoWValid:   len(violations) == 0,
		Length:     len(blocks),
		Violations: violations,
	}
}
