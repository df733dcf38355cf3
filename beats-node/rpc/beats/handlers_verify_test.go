package beats

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/provenonce/beats/beats-node/rpc/ratelimit"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainForTest(t *testing.T, count int, difficulty uint32, anchorHash string) []BeatJson {
	t.Helper()
	prev := hexDigest("verify-test-genesis")
	out := make([]BeatJson, 0, count)
	for i := 0; i < count; i++ {
		b := beat.ComputeBeat(prev, uint64(i), difficulty, "", anchorHash)
		out = append(out, BeatJson{
			Index:      u64(b.Index),
			Hash:       b.Hash,
			Prev:       b.Prev,
			AnchorHash: b.AnchorHash,
		})
		prev = b.Hash
	}
	return out
}

func TestGetVerifyMetadata(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s.GetVerify, http.MethodGet, "/api/v1/beat/verify", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyMetadataResponse
	decodeResponse(t, w, &resp)
	assert.Equal(t, "beats", resp.Service)
	assert.Equal(t, []string{"beat", "chain", "proof"}, resp.Modes)
	assert.Equal(t, uint32(100), resp.Difficulty.Min)
	assert.Equal(t, uint32(5000), resp.Difficulty.PublicMax)
	assert.Equal(t, 25, resp.MaxSpotChecks)
	assert.Equal(t, 1000, resp.MaxChainBeats)
}

func TestPostVerifyBeatMode(t *testing.T) {
	s, _ := newTestServer(t)
	b := beat.ComputeBeat(hexDigest("p"), 5, 100, "", "")

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode:       "beat",
		Difficulty: u32(100),
		Beat:       &BeatJson{Index: u64(5), Hash: b.Hash, Prev: b.Prev},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp VerifyBeatResponse
	decodeResponse(t, w, &resp)
	assert.True(t, resp.Valid)
	assert.Equal(t, uint64(5), resp.BeatIndex)
	assert.Equal(t, uint32(100), resp.Difficulty)

	// Same beat at the wrong difficulty is well formed but invalid.
	w = doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode:       "beat",
		Difficulty: u32(101),
		Beat:       &BeatJson{Index: u64(5), Hash: b.Hash, Prev: b.Prev},
	})
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &resp)
	assert.False(t, resp.Valid)
}

func TestPostVerifyBeatModeClampsDifficulty(t *testing.T) {
	s, _ := newTestServer(t)
	// A beat computed at the public cap verifies even when the caller asks
	// for more.
	b := beat.ComputeBeat(hexDigest("p"), 1, 5000, "", "")
	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode:       "beat",
		Difficulty: u32(900000),
		Beat:       &BeatJson{Index: u64(1), Hash: b.Hash, Prev: b.Prev},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp VerifyBeatResponse
	decodeResponse(t, w, &resp)
	assert.True(t, resp.Valid)
	assert.Equal(t, uint32(5000), resp.Difficulty)
}

func TestPostVerifyBeatModeRejectsMalformed(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{Mode: "beat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode: "beat",
		Beat: &BeatJson{Index: u64(1), Hash: "UPPERCASE", Prev: hexDigest("p")},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostVerifyChainMode(t *testing.T) {
	s, _ := newTestServer(t)
	beats := chainForTest(t, 12, 100, "")

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode:       "chain",
		Difficulty: u32(100),
		Beats:      beats,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp VerifyChainResponse
	decodeResponse(t, w, &resp)
	assert.True(t, resp.Valid)
	assert.Equal(t, 12, resp.ChainLength)
	assert.True(t, resp.BeatsChecked >= 3)
	assert.NotNil(t, resp.FailedIndices)
	assert.Empty(t, resp.FailedIndices)
}

func TestPostVerifyChainModeBrokenLink(t *testing.T) {
	s, _ := newTestServer(t)
	beats := chainForTest(t, 12, 100, "")
	beats[4].Prev = hexDigest("elsewhere")

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode:       "chain",
		Difficulty: u32(100),
		Beats:      beats,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp VerifyChainResponse
	decodeResponse(t, w, &resp)
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.FailedIndices, 4)
}

func TestPostVerifyChainModeLimits(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode: "chain", Difficulty: u32(100),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "beats array is required")

	oversized := make([]BeatJson, 1001)
	for i := range oversized {
		oversized[i] = BeatJson{Index: u64(uint64(i)), Hash: hexDigest("x"), Prev: hexDigest("y")}
	}
	w = doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{
		Mode: "chain", Difficulty: u32(100), Beats: oversized,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds maximum 1000")
}

func TestPostVerifyProofMode(t *testing.T) {
	s, _ := newTestServer(t)
	beats := chainForTest(t, 10, 100, "")
	checks := make([]SpotCheckJson, 0, 3)
	for _, i := range []int{0, 5, 9} {
		checks = append(checks, SpotCheckJson{Index: beats[i].Index, Hash: beats[i].Hash, Prev: beats[i].Prev})
	}
	// Beats run 0..9, so the window 0->9 computed 9 beats.
	req := &VerifyRequest{
		Mode:       "proof",
		Difficulty: u32(100),
		Proof: &ProofJson{
			FromBeat:   u64(0),
			ToBeat:     u64(9),
			FromHash:   beats[0].Prev,
			ToHash:     beats[9].Hash,
			SpotChecks: checks,
		},
	}
	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp VerifyProofResponse
	decodeResponse(t, w, &resp)
	assert.True(t, resp.Valid, resp.Reason)
	assert.Equal(t, 3, resp.SpotChecksVerified)

	// Claiming more work than the window holds is invalid with a reason.
	req.Proof.BeatsComputed = u64(20)
	w = doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", req)
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &resp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "Beat count mismatch", resp.Reason)
}

func TestPostVerifyUnknownMode(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", &VerifyRequest{Mode: "zen"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown verify mode")
}

func TestPostVerifyRequiresJSONContentType(t *testing.T) {
	s, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/beat/verify", strings.NewReader(`{"mode":"beat"}`))
	r.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	s.PostVerify(w, r)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestPostVerifyRejectsOversizedBody(t *testing.T) {
	s, _ := newTestServer(t)
	blob := append([]byte(`{"mode":"`), bytes.Repeat([]byte("a"), 1<<20+1)...)
	blob = append(blob, []byte(`"}`)...)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/beat/verify", bytes.NewReader(blob))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.PostVerify(w, r)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestPostVerifyRejectsMalformedJSON(t *testing.T) {
	s, _ := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/beat/verify", strings.NewReader(`{"mode":`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.PostVerify(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostVerifyRateLimited(t *testing.T) {
	s, _ := newTestServer(t)
	s.RequestLimiter = ratelimit.NewFixedWindow(1, time.Minute, 100)

	b := beat.ComputeBeat(hexDigest("p"), 0, 100, "", "")
	body := &VerifyRequest{Mode: "beat", Difficulty: u32(100), Beat: &BeatJson{Index: u64(0), Hash: b.Hash, Prev: b.Prev}}

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestPostVerifyCostBudgetExhausted(t *testing.T) {
	s, _ := newTestServer(t)
	s.CostBudget = ratelimit.NewCostBudget(150, 1)

	b := beat.ComputeBeat(hexDigest("p"), 0, 100, "", "")
	body := &VerifyRequest{Mode: "beat", Difficulty: u32(100), Beat: &BeatJson{Index: u64(0), Hash: b.Hash, Prev: b.Prev}}

	w := doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", body)
	require.Equal(t, http.StatusOK, w.Code)

	// The second request would cost another 100 operations against the 50
	// remaining.
	w = doJSON(t, s.PostVerify, http.MethodPost, "/api/v1/beat/verify", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
