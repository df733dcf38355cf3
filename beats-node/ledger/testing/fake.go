// Package testing provides a fake ledger so the rest of the service can be
// tested without a live RPC node.
package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/provenonce/beats/beats-node/ledger"
)

// FakeLedger implements ledger.Client in memory. Published memos become
// visible to RecentMemos immediately, newest first.
type FakeLedger struct {
	mu sync.Mutex

	Memos      []ledger.MemoRecord
	MemosErr   error
	Entropy    string
	EntropyErr error
	Balance    uint64
	PublishErr error
	Published  [][]byte

	addr string
	seq  int
}

var _ ledger.Client = (*FakeLedger)(nil)

// NewFakeLedger returns a fake with valid entropy and a funded writer.
func NewFakeLedger() *FakeLedger {
	entropy := make([]byte, 32)
	for i := range entropy {
		entropy[i] = byte(i + 1)
	}
	return &FakeLedger{
		Entropy: base58.Encode(entropy),
		Balance: 1_000_000_000,
		addr:    base58.Encode(make([]byte, 32)),
	}
}

// RecentMemos returns the stored memos, newest first.
func (f *FakeLedger) RecentMemos(_ context.Context, limit int) ([]ledger.MemoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MemosErr != nil {
		return nil, f.MemosErr
	}
	n := len(f.Memos)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]ledger.MemoRecord, n)
	copy(out, f.Memos[:n])
	return out, nil
}

// PublishMemo records the payload and makes it readable as the newest memo.
func (f *FakeLedger) PublishMemo(_ context.Context, payload []byte) (*ledger.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishErr != nil {
		return nil, f.PublishErr
	}
	f.seq++
	sig := fmt.Sprintf("fake-signature-%d", f.seq)
	f.Published = append(f.Published, append([]byte(nil), payload...))
	f.Memos = append([]ledger.MemoRecord{{
		Signature:          sig,
		ConfirmationStatus: "finalized",
		Memo:               string(payload),
	}}, f.Memos...)
	return &ledger.PublishResult{Signature: sig, Slot: uint64(f.seq)}, nil
}

// ExternalEntropy returns the configured entropy or error.
func (f *FakeLedger) ExternalEntropy(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EntropyErr != nil {
		return "", f.EntropyErr
	}
	return f.Entropy, nil
}

// AccountBalance returns the configured balance.
func (f *FakeLedger) AccountBalance(_ context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Balance, nil
}

// WriterAddress returns a fixed fake address.
func (f *FakeLedger) WriterAddress() string {
	return f.addr
}

// SetMemos replaces the stored memo list, newest first.
func (f *FakeLedger) SetMemos(memos []ledger.MemoRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Memos = memos
}
