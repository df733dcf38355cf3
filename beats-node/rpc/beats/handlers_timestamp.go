package beats

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/provenonce/beats/beats-node/rpc/ratelimit"
	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/provenonce/beats/encoding/canonicaljson"
	"github.com/provenonce/beats/network/httputil"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"
)

// TierHeader carries the optional pro-tier token.
const TierHeader = "X-Beats-Tier-Token"

// PostTimestamp binds a 32-byte digest to the current anchor by publishing
// a timestamp memo and returns a signed receipt.
func (s *Server) PostTimestamp(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "beats.PostTimestamp")
	defer span.End()

	if !requireJSON(w, r) {
		return
	}
	var req TimestampRequest
	if !decodeBody(w, r, params.BeatsConfig().MaxTimestampBody, &req) {
		return
	}
	if !beat.IsHexHash(req.Hash) {
		httputil.HandleError(w, "hash must be 64 lowercase hex characters", http.StatusBadRequest)
		return
	}

	tier := "free"
	minuteLimiter, dayLimiter := s.TimestampMinuteLimiter, s.TimestampDayLimiter
	if s.ProTierToken != "" {
		token := r.Header.Get(TierHeader)
		if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.ProTierToken)) == 1 {
			tier = "pro"
			minuteLimiter, dayLimiter = s.ProMinuteLimiter, s.ProDayLimiter
		}
	}
	ip := ratelimit.ClientIP(r)
	if d := minuteLimiter.Check(ip); !d.Allowed {
		writeRateLimited(w, d)
		return
	}
	if d := dayLimiter.Check(ip); !d.Allowed {
		writeRateLimited(w, d)
		return
	}

	tip, err := s.Anchors.Latest(ctx)
	if err != nil {
		log.WithError(err).Error("Could not read anchor tip for timestamp")
		httputil.HandleError(w, "could not read current anchor", http.StatusInternalServerError)
		return
	}
	if tip == nil {
		httputil.HandleError(w, "no anchor available yet", http.StatusServiceUnavailable)
		return
	}
	balance, err := s.Ledger.AccountBalance(ctx)
	if err != nil {
		log.WithError(err).Error("Could not read writer balance")
		httputil.HandleError(w, "could not read writer balance", http.StatusServiceUnavailable)
		return
	}
	if balance < params.BeatsConfig().MinWriterBalance {
		httputil.HandleError(w, "writer balance too low to publish", http.StatusServiceUnavailable)
		return
	}

	utc := time.Now().UnixMilli()
	memo, err := canonicaljson.Marshal(map[string]interface{}{
		"v":            1,
		"type":         "timestamp",
		"hash":         req.Hash,
		"anchor_index": tip.BeatIndex,
		"anchor_hash":  tip.Hash,
		"utc":          utc,
	})
	if err != nil {
		httputil.HandleError(w, "could not encode timestamp memo", http.StatusInternalServerError)
		return
	}
	pub, err := s.Ledger.PublishMemo(ctx, memo)
	if err != nil {
		log.WithError(err).Error("Could not publish timestamp memo")
		httputil.HandleError(w, "could not publish timestamp: "+err.Error(), http.StatusInternalServerError)
		return
	}

	payload := &TimestampPayload{
		Type:        "timestamp",
		Hash:        req.Hash,
		AnchorIndex: tip.BeatIndex,
		AnchorHash:  tip.Hash,
		UTC:         utc,
		TxSignature: pub.Signature,
	}
	sig, err := s.Keys.SignTimestampReceipt(payload)
	if err != nil {
		log.WithError(err).Error("Could not sign timestamp receipt")
		httputil.HandleError(w, "could not sign receipt", http.StatusInternalServerError)
		return
	}
	log.WithFields(logrus.Fields{
		"hash":         req.Hash,
		"anchor_index": tip.BeatIndex,
		"tx_signature": pub.Signature,
		"tier":         tier,
	}).Info("Published timestamp")
	httputil.WriteJson(w, &TimestampResponse{
		Timestamp: payload,
		OnChain: &OnChainJson{
			TxSignature: pub.Signature,
			ExplorerURL: s.explorerURL(pub.Signature),
		},
		Receipt: &ReceiptJson{
			Signature: sig,
			PublicKey: s.Keys.TimestampPublicKey().Base58,
		},
		Tier: tier,
	})
}
