package anchor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/provenonce/beats/beats-node/ledger"
	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

var (
	anchorsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beats_anchors_published_total",
		Help: "The number of anchors this node has published to the ledger.",
	})
	anchorAdvanceSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beats_anchor_advance_skipped_total",
		Help: "The number of advance attempts skipped because the tip was still fresh.",
	})
)

// ErrEntropyUnavailable means the external entropy source could not be read.
// The advancer fails closed on it: the head must not move without fresh
// entropy.
var ErrEntropyUnavailable = errors.New("external entropy unavailable")

// AdvanceResult reports one advancer invocation.
type AdvanceResult struct {
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	BeatIndex   uint64 `json:"beat_index,omitempty"`
	Hash        string `json:"hash,omitempty"`
	TxSignature string `json:"tx_signature,omitempty"`
	NextAt      int64  `json:"next_at,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms"`
}

// Advancer computes and publishes the next anchor. It keeps no local state;
// the ledger is the persistence, so a crashed or duplicated invocation is
// always safe to retry.
type Advancer struct {
	Ledger ledger.Client
}

// ReadLatest scans recent memos from the ledger and returns the canonical
// tip, or nil when no anchor has ever been published.
func ReadLatest(ctx context.Context, client ledger.Client) (*beat.GlobalAnchor, error) {
	records, err := client.RecentMemos(ctx, params.BeatsConfig().RecentMemoLimit)
	if err != nil {
		return nil, errors.Wrap(err, "read recent memos")
	}
	var candidates []*beat.GlobalAnchor
	for _, rec := range records {
		if a, ok := ParseMemo(rec.Memo); ok {
			a.Signature = rec.Signature
			candidates = append(candidates, a)
		}
	}
	return SelectCanonical(candidates), nil
}

// Advance runs one step of the anchor state machine: read tip, gate on
// freshness, fetch entropy, compute the next anchor, publish, wait for
// finality.
func (a *Advancer) Advance(ctx context.Context) (*AdvanceResult, error) {
	ctx, span := trace.StartSpan(ctx, "anchor.Advance")
	defer span.End()
	start := time.Now()
	cfg := params.BeatsConfig()

	tip, err := ReadLatest(ctx, a.Ledger)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	interval := cfg.AnchorInterval.Milliseconds()
	if tip != nil && now-tip.UTC <= interval {
		anchorAdvanceSkipped.Inc()
		log.WithField("beat_index", tip.BeatIndex).Debug("Anchor still fresh, skipping advance")
		return &AdvanceResult{
			Status:    "skipped",
			Reason:    "anchor_still_fresh",
			BeatIndex: tip.BeatIndex,
			NextAt:    tip.UTC + interval,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	entropy, err := a.Ledger.ExternalEntropy(ctx)
	if err != nil || entropy == "" {
		if err != nil {
			log.WithError(err).Error("Failed to fetch external entropy")
		}
		return nil, ErrEntropyUnavailable
	}

	difficulty := cfg.DefaultDifficulty
	var epoch uint32
	if tip != nil {
		if tip.Difficulty > 0 {
			difficulty = tip.Difficulty
		}
		epoch = tip.Epoch
	}
	next, err := beat.CreateGlobalAnchor(tip, difficulty, epoch, entropy)
	if err != nil {
		return nil, errors.Wrap(err, "compute next anchor")
	}
	payload, err := SerializeMemo(next)
	if err != nil {
		return nil, err
	}
	pub, err := a.Ledger.PublishMemo(ctx, payload)
	if err != nil {
		return nil, errors.Wrap(err, "publish anchor memo")
	}
	anchorsPublished.Inc()
	log.WithFields(logrus.Fields{
		"beat_index":   next.BeatIndex,
		"hash":         next.Hash,
		"tx_signature": pub.Signature,
	}).Info("Published anchor")
	return &AdvanceResult{
		Status:      "generated",
		BeatIndex:   next.BeatIndex,
		Hash:        next.Hash,
		TxSignature: pub.Signature,
		ElapsedMs:   time.Since(start).Milliseconds(),
	}, nil
}
