package chain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jmerrifield20/powchain/internal/chain"
)

func TestNewLedger_genesisBlock(t *testing.T) {
	l := chain.NewLedger()

	if n := l.Len(); n != 1 {
		t.Fatalf("expected 1 genesis block, got %d", n)
	}
	g, err := l.Block(0)
	if err != nil {
		t.Fatal(err)
	}
	if g.Index != 0 {
		t.Errorf("genesis index: got %d, want 0", g.Index)
	}
	if g.PreviousHash != chain.GenesisPrevHash {
		t.Errorf("genesis previous hash: got %q, want %q", g.PreviousHash, chain.GenesisPrevHash)
	}
	if g.Data != chain.GenesisData {
		t.Errorf("genesis data: got %q, want %q", g.Data, chain.GenesisData)
	}
	if !strings.HasPrefix(g.Hash, "0000") {
		t.Errorf("genesis is not mined: %q", g.Hash)
	}
}

func TestIsValid_genesisOnly(t *testing.T) {
	if !chain.NewLedger().IsValid() {
		t.Error("genesis-only ledger should be valid")
	}
}

func TestAppend_aliceScenario(t *testing.T) {
	l := chain.NewLedger()
	genesis, _ := l.Latest()

	b := chain.NewBlock(1, "Alice sends 5 BTC to Bob", genesis.Hash)
	if err := l.Append(*b); err != nil {
		t.Fatal(err)
	}

	if l.Len() != 2 {
		t.Fatalf("expected length 2, got %d", l.Len())
	}
	if !l.IsValid() {
		t.Error("ledger should be valid after append")
	}
	second, _ := l.Block(1)
	if second.PreviousHash != genesis.Hash {
		t.Errorf("chain broken: previous_hash=%q, want %q", second.PreviousHash, genesis.Hash)
	}
}

func TestAppend_validAfterEachAppend(t *testing.T) {
	l := chain.NewLedgerWithDifficulty(2)

	const appends = 5
	for i := 1; i <= appends; i++ {
		tail, err := l.Latest()
		if err != nil {
			t.Fatal(err)
		}
		b := chain.MineBlock(uint64(l.Len()), "tx", tail.Hash, 2)
		if err := l.Append(*b); err != nil {
			t.Fatal(err)
		}
		if l.Len() != 1+i {
			t.Fatalf("after %d appends: length %d", i, l.Len())
		}
		if !l.IsValid() {
			t.Fatalf("ledger invalid after append %d", i)
		}
	}
}

func TestAppend_restampsLinkAndHash(t *testing.T) {
	l := chain.NewLedger()
	genesis, _ := l.Latest()

	b := chain.MineBlock(1, "stale link", "not-the-tail", 1)
	if err := l.Append(*b); err != nil {
		t.Fatal(err)
	}

	got, _ := l.Latest()
	if got.PreviousHash != genesis.Hash {
		t.Errorf("previous_hash not re-stamped: %q", got.PreviousHash)
	}
	if got.Hash != got.RecomputeHash() {
		t.Error("hash not recomputed after re-stamp")
	}
	if got.Nonce != b.Nonce {
		t.Errorf("nonce changed: got %d, want %d (append must not re-mine)", got.Nonce, b.Nonce)
	}
	if !l.IsValid() {
		t.Error("IsValid should hold after re-stamping")
	}
}

func TestAppend_keepsCallerIndex(t *testing.T) {
	l := chain.NewLedgerWithDifficulty(1)
	b := chain.MineBlock(7, "out of order", "", 1)
	if err := l.Append(*b); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Latest()
	if got.Index != 7 {
		t.Errorf("index rewritten: got %d, want 7", got.Index)
	}
}

func TestAppend_ownsCopy(t *testing.T) {
	l := chain.NewLedgerWithDifficulty(1)
	tail, _ := l.Latest()
	b := chain.MineBlock(1, "mine", tail.Hash, 1)
	if err := l.Append(*b); err != nil {
		t.Fatal(err)
	}

	b.Data = "changed by caller"
	blocks := l.Blocks()
	blocks[1].Data = "changed through snapshot"

	if !l.IsValid() {
		t.Error("external copies must not alias ledger storage")
	}
}

func TestLatest_emptyLedger(t *testing.T) {
	var l chain.Ledger
	if _, err := l.Latest(); !errors.Is(err, chain.ErrEmptyLedger) {
		t.Errorf("expected ErrEmptyLedger, got %v", err)
	}
	if err := l.Append(chain.Block{Index: 1}); !errors.Is(err, chain.ErrEmptyLedger) {
		t.Errorf("Append on empty ledger: expected ErrEmptyLedger, got %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("failed append must not grow the ledger")
	}
}

func TestBlock_outOfRange(t *testing.T) {
	l := chain.NewLedgerWithDifficulty(1)
	for _, i := range []int{-1, 1, 99} {
		if _, err := l.Block(i); !errors.Is(err, chain.ErrBlockNotFound) {
			t.Errorf("Block(%d): expected ErrBlockNotFound, got %v", i, err)
		}
	}
}
