package beats

import (
	"net/http"
	"time"

	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/network/httputil"
	"go.opencensus.io/trace"
)

// GetAnchor returns the canonical tip with a signed anchor receipt so
// clients can pin the tip offline.
func (s *Server) GetAnchor(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "beats.GetAnchor")
	defer span.End()

	if _, ok := s.rateLimit(w, r); !ok {
		return
	}
	tip, err := s.Anchors.Latest(ctx)
	if err != nil {
		log.WithError(err).Error("Could not read anchor tip")
		httputil.HandleError(w, "could not read current anchor", http.StatusInternalServerError)
		return
	}
	if tip == nil {
		httputil.HandleError(w, "no anchor available yet", http.StatusServiceUnavailable)
		return
	}
	payload := &AnchorReceiptPayload{
		Type:          "anchor",
		BeatIndex:     tip.BeatIndex,
		Hash:          tip.Hash,
		PrevHash:      tip.PrevHash,
		UTC:           tip.UTC,
		Difficulty:    tip.Difficulty,
		Epoch:         tip.Epoch,
		SolanaEntropy: tip.SolanaEntropy,
	}
	sig, err := s.Keys.SignTimestampReceipt(payload)
	if err != nil {
		log.WithError(err).Error("Could not sign anchor receipt")
		httputil.HandleError(w, "could not sign receipt", http.StatusInternalServerError)
		return
	}
	httputil.WriteJson(w, &AnchorResponse{
		Anchor: &AnchorJson{
			BeatIndex:     tip.BeatIndex,
			Hash:          tip.Hash,
			PrevHash:      tip.PrevHash,
			UTC:           tip.UTC,
			Difficulty:    tip.Difficulty,
			Epoch:         tip.Epoch,
			SolanaEntropy: tip.SolanaEntropy,
			Signature:     tip.Signature,
		},
		Receipt: &ReceiptJson{
			Signature: sig,
			PublicKey: s.Keys.TimestampPublicKey().Base58,
		},
	})
}

// GetKeys returns both receipt verification keys.
func (s *Server) GetKeys(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.rateLimit(w, r); !ok {
		return
	}
	ts := s.Keys.TimestampPublicKey()
	wp := s.Keys.WorkProofPublicKey()
	httputil.WriteJson(w, &KeysResponse{
		Algorithm: "Ed25519",
		Timestamp: &PublicKeyJson{
			PublicKeyHex:    ts.Hex,
			PublicKeyBase58: ts.Base58,
			SigningContext:  ts.SigningContext,
		},
		WorkProof: &PublicKeyJson{
			PublicKeyHex:    wp.Hex,
			PublicKeyBase58: wp.Base58,
			SigningContext:  wp.SigningContext,
		},
	})
}

// GetHealth reports service status, the current tip, and the clock
// parameters.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "beats.GetHealth")
	defer span.End()

	if _, ok := s.rateLimit(w, r); !ok {
		return
	}
	cfg := params.BeatsConfig()
	now := time.Now().UnixMilli()
	resp := &HealthResponse{
		Service:      "beats",
		Status:       "ok",
		Timestamp:    now,
		AnchorSigner: s.Ledger.WriterAddress(),
		Timing: &HealthTiming{
			AnchorIntervalMs:  cfg.AnchorInterval.Milliseconds(),
			AnchorGraceWindow: cfg.AnchorGraceWindow,
			AnchorCacheTTLMs:  cfg.AnchorCacheTTL.Milliseconds(),
		},
		Operations: []string{
			"anchor", "key", "verify", "timestamp", "work-proof",
		},
	}
	tip, err := s.Anchors.Latest(ctx)
	if err != nil {
		resp.Status = "degraded"
	} else if tip != nil {
		resp.Anchor = &HealthAnchor{
			BeatIndex: tip.BeatIndex,
			Hash:      tip.Hash,
			UTC:       tip.UTC,
			AgeMs:     now - tip.UTC,
		}
	}
	httputil.WriteJson(w, resp)
}
