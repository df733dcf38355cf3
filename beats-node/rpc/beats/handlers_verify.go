package beats

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/provenonce/beats/network/httputil"
	"go.opencensus.io/trace"
)

// GetVerify describes the verify endpoint.
func (s *Server) GetVerify(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.rateLimit(w, r); !ok {
		return
	}
	cfg := params.BeatsConfig()
	httputil.WriteJson(w, &VerifyMetadataResponse{
		Service: "beats",
		Modes:   []string{"beat", "chain", "proof"},
		Difficulty: DifficultyBand{
			Min:       cfg.MinDifficulty,
			Max:       cfg.MaxDifficulty,
			PublicMax: cfg.PublicMaxDifficulty,
		},
		MaxChainBeats: cfg.MaxChainBeats,
		MaxSpotChecks: cfg.PublicMaxSpotChecks,
	})
}

// PostVerify dispatches on the request's mode field: a single beat, a beat
// chain, or a check-in proof.
func (s *Server) PostVerify(w http.ResponseWriter, r *http.Request) {
	_, span := trace.StartSpan(r.Context(), "beats.PostVerify")
	defer span.End()

	clientKey, ok := s.rateLimit(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var req VerifyRequest
	if !decodeBody(w, r, params.BeatsConfig().MaxRequestBody, &req) {
		return
	}

	difficulty := params.BeatsConfig().DefaultDifficulty
	if req.Difficulty != nil {
		difficulty = *req.Difficulty
	}
	difficulty = clampPublicDifficulty(difficulty)

	switch req.Mode {
	case "beat":
		s.verifyBeatMode(w, clientKey, &req, difficulty)
	case "chain":
		s.verifyChainMode(w, clientKey, &req, difficulty)
	case "proof":
		s.verifyProofMode(w, clientKey, &req, difficulty)
	default:
		httputil.HandleError(w, fmt.Sprintf("unknown verify mode %q", req.Mode), http.StatusBadRequest)
	}
}

// decodeBody reads at most maxBytes of the request body into dst. A false
// return means the response has been written.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) bool {
	if r.Body == http.NoBody {
		httputil.HandleError(w, "request body required", http.StatusBadRequest)
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.HandleError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		httputil.HandleError(w, "could not decode request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) verifyBeatMode(w http.ResponseWriter, clientKey string, req *VerifyRequest, difficulty uint32) {
	b := req.Beat
	if b == nil || b.Index == nil {
		httputil.HandleError(w, "beat with index, hash and prev is required", http.StatusBadRequest)
		return
	}
	if !beat.IsHexHash(b.Hash) || !beat.IsHexHash(b.Prev) {
		httputil.HandleError(w, "beat hash and prev must be 64 lowercase hex characters", http.StatusBadRequest)
		return
	}
	if !s.allowCost(w, clientKey, difficulty, 1) {
		return
	}
	valid := beat.VerifyBeat(beat.Beat{
		Index:      *b.Index,
		Hash:       b.Hash,
		Prev:       b.Prev,
		Nonce:      b.Nonce,
		AnchorHash: b.AnchorHash,
	}, difficulty)
	countOutcome("verify_beat", valid)
	httputil.WriteJson(w, &VerifyBeatResponse{
		Valid:      valid,
		BeatIndex:  *b.Index,
		Difficulty: difficulty,
	})
}

func (s *Server) verifyChainMode(w http.ResponseWriter, clientKey string, req *VerifyRequest, difficulty uint32) {
	cfg := params.BeatsConfig()
	if len(req.Beats) == 0 {
		httputil.HandleError(w, "beats array is required", http.StatusBadRequest)
		return
	}
	if len(req.Beats) > cfg.MaxChainBeats {
		httputil.HandleError(w, fmt.Sprintf("chain length %d exceeds maximum %d", len(req.Beats), cfg.MaxChainBeats), http.StatusBadRequest)
		return
	}
	spotChecks := 3
	if req.SpotChecks != nil {
		spotChecks = *req.SpotChecks
	}
	if spotChecks < 1 {
		spotChecks = 1
	}
	if spotChecks > cfg.PublicMaxSpotChecks {
		spotChecks = cfg.PublicMaxSpotChecks
	}
	chain := make([]beat.Beat, len(req.Beats))
	for i, b := range req.Beats {
		if b.Index == nil || !beat.IsHexHash(b.Hash) {
			httputil.HandleError(w, fmt.Sprintf("beat at position %d is malformed", i), http.StatusBadRequest)
			return
		}
		chain[i] = beat.Beat{
			Index:      *b.Index,
			Hash:       b.Hash,
			Prev:       b.Prev,
			Nonce:      b.Nonce,
			AnchorHash: b.AnchorHash,
		}
	}
	if !s.allowCost(w, clientKey, difficulty, spotChecks) {
		return
	}
	res := beat.VerifyBeatChain(chain, difficulty, spotChecks)
	countOutcome("verify_chain", res.Valid)
	failed := res.Failed
	if failed == nil {
		failed = []int{}
	}
	httputil.WriteJson(w, &VerifyChainResponse{
		Valid:         res.Valid,
		ChainLength:   len(chain),
		BeatsChecked:  res.Checked,
		FailedIndices: failed,
	})
}

func (s *Server) verifyProofMode(w http.ResponseWriter, clientKey string, req *VerifyRequest, difficulty uint32) {
	cfg := params.BeatsConfig()
	p := req.Proof
	if p == nil || p.FromBeat == nil || p.ToBeat == nil {
		httputil.HandleError(w, "proof with from_beat, to_beat, from_hash, to_hash and spot_checks is required", http.StatusBadRequest)
		return
	}
	if !beat.IsHexHash(p.FromHash) || !beat.IsHexHash(p.ToHash) {
		httputil.HandleError(w, "proof from_hash and to_hash must be 64 lowercase hex characters", http.StatusBadRequest)
		return
	}
	if len(p.SpotChecks) > cfg.PublicMaxSpotChecks {
		httputil.HandleError(w, fmt.Sprintf("spot_checks exceeds maximum %d", cfg.PublicMaxSpotChecks), http.StatusBadRequest)
		return
	}
	proof, ok := proofFromJson(p)
	if !ok {
		httputil.HandleError(w, "proof spot_checks are malformed", http.StatusBadRequest)
		return
	}
	if !s.allowCost(w, clientKey, difficulty, len(proof.SpotChecks)) {
		return
	}
	res := beat.VerifyCheckinProof(*proof, difficulty)
	countOutcome("verify_proof", res.Valid)
	httputil.WriteJson(w, &VerifyProofResponse{
		Valid:              res.Valid,
		Reason:             res.Reason,
		SpotChecksVerified: res.SpotChecksVerified,
	})
}

func proofFromJson(p *ProofJson) (*beat.CheckinProof, bool) {
	proof := &beat.CheckinProof{
		FromBeat:   *p.FromBeat,
		ToBeat:     *p.ToBeat,
		FromHash:   p.FromHash,
		ToHash:     p.ToHash,
		AnchorHash: p.AnchorHash,
	}
	if p.BeatsComputed != nil {
		proof.BeatsComputed = *p.BeatsComputed
	} else if *p.ToBeat > *p.FromBeat {
		proof.BeatsComputed = *p.ToBeat - *p.FromBeat
	}
	for _, sc := range p.SpotChecks {
		if sc.Index == nil || !beat.IsHexHash(sc.Hash) {
			return nil, false
		}
		proof.SpotChecks = append(proof.SpotChecks, beat.SpotCheck{
			Index: *sc.Index,
			Hash:  sc.Hash,
			Prev:  sc.Prev,
			Nonce: sc.Nonce,
		})
	}
	return proof, true
}

func countOutcome(endpoint string, valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	verificationsByOutcome.WithLabelValues(endpoint, outcome).Inc()
}
