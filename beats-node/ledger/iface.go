// Package ledger abstracts the append-only public ledger the anchor chain
// is written to. The service consumes a deliberately small surface: read
// recent memos for one writer, publish a memo and wait for finality, fetch
// external entropy, and check the writer's balance.
package ledger

import "context"

// MemoRecord is one memo-bearing transaction observed for the writer.
type MemoRecord struct {
	Signature          string
	ConfirmationStatus string
	Memo               string
}

// PublishResult reports a finalized memo publication.
type PublishResult struct {
	Signature string
	Slot      uint64
}

// Client is the ledger capability set consumed by the rest of the service.
// All methods are I/O bound and must respect the context deadline.
type Client interface {
	// RecentMemos returns up to limit memo records for the writer, newest
	// first, at finalized commitment.
	RecentMemos(ctx context.Context, limit int) ([]MemoRecord, error)
	// PublishMemo writes payload to the ledger and returns only once the
	// transaction is finalized.
	PublishMemo(ctx context.Context, payload []byte) (*PublishResult, error)
	// ExternalEntropy returns 32 bytes of finalized ledger entropy in
	// base58, or an empty string when none is available.
	ExternalEntropy(ctx context.Context) (string, error)
	// AccountBalance returns the writer's balance in minor units.
	AccountBalance(ctx context.Context) (uint64, error)
	// WriterAddress returns the base58 address memos are published from.
	WriterAddress() string
}
