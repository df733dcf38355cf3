package beats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/provenonce/beats/network/httputil"
	"go.opencensus.io/trace"
)

// Stable reason tokens for well-formed but invalid work proofs.
const (
	reasonInsufficientDifficulty = "insufficient_difficulty"
	reasonInsufficientSpotChecks = "insufficient_spot_checks"
	reasonCountMismatch          = "count_mismatch"
	reasonStaleAnchor            = "stale_anchor"
	reasonSpotCheckFailed        = "spot_check_failed"
)

type workProofEnvelope struct {
	WorkProof *WorkProofJson `json:"work_proof"`
}

// PostWorkProof validates a work-proof submission and returns a signed
// receipt when it holds. Structural problems are 400s; a well-formed proof
// that fails validation is a 200 with valid:false and a stable reason
// token.
func (s *Server) PostWorkProof(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "beats.PostWorkProof")
	defer span.End()

	clientKey, ok := s.rateLimit(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	// The body is either {"work_proof": {...}} or the work proof itself.
	var raw json.RawMessage
	if !decodeBody(w, r, params.BeatsConfig().MaxRequestBody, &raw) {
		return
	}
	var envelope workProofEnvelope
	wp := &WorkProofJson{}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.WorkProof != nil {
		wp = envelope.WorkProof
	} else if err := json.Unmarshal(raw, wp); err != nil {
		httputil.HandleError(w, "could not decode work proof: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := params.BeatsConfig()
	if !beat.IsHexHash(wp.FromHash) || !beat.IsHexHash(wp.ToHash) {
		httputil.HandleError(w, "from_hash and to_hash must be 64 lowercase hex characters", http.StatusBadRequest)
		return
	}
	if wp.BeatsComputed == nil || *wp.BeatsComputed < 1 {
		httputil.HandleError(w, "beats_computed must be at least 1", http.StatusBadRequest)
		return
	}
	if wp.AnchorIndex == nil {
		httputil.HandleError(w, "anchor_index is required", http.StatusBadRequest)
		return
	}
	if wp.AnchorHash != "" && !beat.IsHexHash(wp.AnchorHash) {
		httputil.HandleError(w, "anchor_hash must be 64 lowercase hex characters", http.StatusBadRequest)
		return
	}
	if len(wp.SpotChecks) < 1 || len(wp.SpotChecks) > cfg.PublicMaxSpotChecks {
		httputil.HandleError(w, fmt.Sprintf("spot_checks must contain between 1 and %d entries", cfg.PublicMaxSpotChecks), http.StatusBadRequest)
		return
	}
	for i, sc := range wp.SpotChecks {
		if sc.Index == nil || !beat.IsHexHash(sc.Hash) || !beat.IsHexHash(sc.Prev) {
			httputil.HandleError(w, fmt.Sprintf("spot check at position %d is malformed", i), http.StatusBadRequest)
			return
		}
	}

	difficulty := cfg.DefaultDifficulty
	if wp.Difficulty != nil {
		difficulty = *wp.Difficulty
	}
	if difficulty < cfg.MinDifficulty {
		s.writeWorkProofInvalid(w, reasonInsufficientDifficulty)
		return
	}
	if difficulty > cfg.PublicMaxDifficulty {
		difficulty = cfg.PublicMaxDifficulty
	}

	required := uint64(3)
	if *wp.BeatsComputed < required {
		required = *wp.BeatsComputed
	}
	if uint64(len(wp.SpotChecks)) < required {
		s.writeWorkProofInvalid(w, reasonInsufficientSpotChecks)
		return
	}

	minIndex, maxIndex := *wp.SpotChecks[0].Index, *wp.SpotChecks[0].Index
	for _, sc := range wp.SpotChecks {
		if *sc.Index < minIndex {
			minIndex = *sc.Index
		}
		if *sc.Index > maxIndex {
			maxIndex = *sc.Index
		}
	}
	if maxIndex-minIndex > *wp.BeatsComputed {
		s.writeWorkProofInvalid(w, reasonCountMismatch)
		return
	}

	// Freshness: the referenced anchor may lag the tip by at most the grace
	// window. On a cold start with no tip the check is skipped rather than
	// refusing all work.
	tip, err := s.Anchors.Latest(ctx)
	if err != nil {
		log.WithError(err).Error("Could not read anchor tip for work proof freshness")
		httputil.HandleError(w, "could not read current anchor", http.StatusInternalServerError)
		return
	}
	if tip != nil {
		lag := int64(tip.BeatIndex) - int64(*wp.AnchorIndex)
		if lag > int64(cfg.AnchorGraceWindow) || *wp.AnchorIndex > tip.BeatIndex {
			s.writeWorkProofInvalid(w, reasonStaleAnchor)
			return
		}
	}

	if !s.allowCost(w, clientKey, difficulty, len(wp.SpotChecks)) {
		return
	}
	for _, sc := range wp.SpotChecks {
		b := beat.Beat{
			Index:      *sc.Index,
			Hash:       sc.Hash,
			Prev:       sc.Prev,
			Nonce:      sc.Nonce,
			AnchorHash: wp.AnchorHash,
		}
		if !beat.VerifyBeat(b, difficulty) {
			s.writeWorkProofInvalid(w, reasonSpotCheckFailed)
			return
		}
	}

	receipt := &WorkProofReceipt{
		Type:               "work_proof",
		FromHash:           wp.FromHash,
		ToHash:             wp.ToHash,
		BeatsComputed:      *wp.BeatsComputed,
		Difficulty:         difficulty,
		AnchorIndex:        *wp.AnchorIndex,
		AnchorHash:         wp.AnchorHash,
		SpotChecksVerified: len(wp.SpotChecks),
		UTC:                time.Now().UnixMilli(),
		PublicKey:          s.Keys.WorkProofPublicKey().Base58,
	}
	sig, err := s.Keys.SignWorkProofReceipt(receipt)
	if err != nil {
		log.WithError(err).Error("Could not sign work proof receipt")
		httputil.HandleError(w, "could not sign receipt", http.StatusInternalServerError)
		return
	}
	receipt.Signature = sig
	verificationsByOutcome.WithLabelValues("work_proof", "valid").Inc()
	httputil.WriteJson(w, &WorkProofResponse{Valid: true, Receipt: receipt})
}

func (s *Server) writeWorkProofInvalid(w http.ResponseWriter, reason string) {
	verificationsByOutcome.WithLabelValues("work_proof", reason).Inc()
	httputil.WriteJson(w, &WorkProofResponse{Valid: false, Reason: reason})
}
