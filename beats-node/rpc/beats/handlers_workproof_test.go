package beats

import (
	"crypto/ed25519"
	"net/http"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/provenonce/beats/encoding/canonicaljson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workProofForTest builds a genuinely computed 10-beat work proof bound to
// the given anchor.
func workProofForTest(t *testing.T, anchorIndex uint64, anchorHash string, difficulty uint32) *WorkProofJson {
	t.Helper()
	prev := hexDigest("wp-start")
	const count = 10
	chain := make([]beat.Beat, 0, count)
	for i := 1; i <= count; i++ {
		b := beat.ComputeBeat(prev, uint64(i), difficulty, "", anchorHash)
		chain = append(chain, b)
		prev = b.Hash
	}
	checks := make([]SpotCheckJson, 0, 3)
	for _, i := range []int{0, 4, count - 1} {
		b := chain[i]
		checks = append(checks, SpotCheckJson{Index: u64(b.Index), Hash: b.Hash, Prev: b.Prev})
	}
	return &WorkProofJson{
		FromHash:      chain[0].Prev,
		ToHash:        chain[count-1].Hash,
		BeatsComputed: u64(count),
		Difficulty:    u32(difficulty),
		AnchorIndex:   u64(anchorIndex),
		AnchorHash:    anchorHash,
		SpotChecks:    checks,
	}
}

func postWorkProof(t *testing.T, s *Server, body interface{}) *WorkProofResponse {
	t.Helper()
	w := doJSON(t, s.PostWorkProof, http.MethodPost, "/api/v1/beat/work-proof", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp WorkProofResponse
	decodeResponse(t, w, &resp)
	return &resp
}

func TestPostWorkProofValid(t *testing.T) {
	s, fake := newTestServer(t)
	tip := publishTip(t, fake, 3)
	wp := workProofForTest(t, tip.BeatIndex, tip.Hash, 100)

	resp := postWorkProof(t, s, wp)
	require.True(t, resp.Valid, resp.Reason)
	require.NotNil(t, resp.Receipt)
	receipt := resp.Receipt
	assert.Equal(t, "work_proof", receipt.Type)
	assert.Equal(t, uint64(10), receipt.BeatsComputed)
	assert.Equal(t, uint32(100), receipt.Difficulty)
	assert.Equal(t, tip.BeatIndex, receipt.AnchorIndex)
	assert.Equal(t, 3, receipt.SpotChecksVerified)
	assert.NotZero(t, receipt.UTC)

	// The signature covers the canonical receipt without its signature
	// field.
	unsigned := *receipt
	unsigned.Signature = ""
	msg, err := canonicaljson.Marshal(&unsigned)
	require.NoError(t, err)
	sig, err := base58.Decode(receipt.Signature)
	require.NoError(t, err)
	pub, err := base58.Decode(s.Keys.WorkProofPublicKey().Base58)
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(pub), msg, sig))
	assert.Equal(t, s.Keys.WorkProofPublicKey().Base58, receipt.PublicKey)
}

func TestPostWorkProofWrappedEnvelope(t *testing.T) {
	s, _ := newTestServer(t)
	wp := workProofForTest(t, 0, "", 100)
	resp := postWorkProof(t, s, map[string]interface{}{"work_proof": wp})
	assert.True(t, resp.Valid, resp.Reason)
}

func TestPostWorkProofColdStartSkipsFreshness(t *testing.T) {
	// With no anchor published yet the freshness gate cannot hold work
	// hostage.
	s, _ := newTestServer(t)
	wp := workProofForTest(t, 42, "", 100)
	resp := postWorkProof(t, s, wp)
	assert.True(t, resp.Valid, resp.Reason)
}

func TestPostWorkProofInsufficientDifficulty(t *testing.T) {
	s, _ := newTestServer(t)
	wp := workProofForTest(t, 0, "", 100)
	wp.Difficulty = u32(50)
	resp := postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "insufficient_difficulty", resp.Reason)
	assert.Nil(t, resp.Receipt)
}

func TestPostWorkProofInsufficientSpotChecks(t *testing.T) {
	s, _ := newTestServer(t)
	wp := workProofForTest(t, 0, "", 100)
	wp.SpotChecks = wp.SpotChecks[:2]
	resp := postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "insufficient_spot_checks", resp.Reason)
}

func TestPostWorkProofCountMismatch(t *testing.T) {
	s, _ := newTestServer(t)
	wp := workProofForTest(t, 0, "", 100)
	// Checks span indices 1..10 while claiming only 2 beats of work.
	wp.BeatsComputed = u64(2)
	resp := postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "count_mismatch", resp.Reason)
}

func TestPostWorkProofStaleAnchor(t *testing.T) {
	s, fake := newTestServer(t)
	tip := publishTip(t, fake, 10)

	// Lagging past the grace window.
	wp := workProofForTest(t, 2, tip.Hash, 100)
	resp := postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "stale_anchor", resp.Reason)

	// Referencing an anchor ahead of the tip.
	wp = workProofForTest(t, 11, tip.Hash, 100)
	resp = postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "stale_anchor", resp.Reason)
}

func TestPostWorkProofWithinGraceWindow(t *testing.T) {
	s, fake := newTestServer(t)
	tip := publishTip(t, fake, 10)
	wp := workProofForTest(t, 5, tip.Hash, 100)
	resp := postWorkProof(t, s, wp)
	assert.True(t, resp.Valid, resp.Reason)
}

func TestPostWorkProofSpotCheckFailed(t *testing.T) {
	s, _ := newTestServer(t)
	wp := workProofForTest(t, 0, "", 100)
	wp.SpotChecks[1].Hash = hexDigest("forged")
	resp := postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "spot_check_failed", resp.Reason)
}

func TestPostWorkProofAnchorBinding(t *testing.T) {
	s, _ := newTestServer(t)
	// Beats computed without the anchor in their seed do not satisfy a
	// proof claiming the binding.
	wp := workProofForTest(t, 0, "", 100)
	wp.AnchorHash = hexDigest("claimed-anchor")
	resp := postWorkProof(t, s, wp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "spot_check_failed", resp.Reason)
}

func TestPostWorkProofStructuralRejections(t *testing.T) {
	s, _ := newTestServer(t)
	cases := map[string]func(wp *WorkProofJson){
		"bad from_hash":        func(wp *WorkProofJson) { wp.FromHash = "xyz" },
		"bad to_hash":          func(wp *WorkProofJson) { wp.ToHash = "" },
		"zero beats":           func(wp *WorkProofJson) { wp.BeatsComputed = u64(0) },
		"missing beats":        func(wp *WorkProofJson) { wp.BeatsComputed = nil },
		"missing anchor index": func(wp *WorkProofJson) { wp.AnchorIndex = nil },
		"bad anchor hash":      func(wp *WorkProofJson) { wp.AnchorHash = "zz" },
		"no spot checks":       func(wp *WorkProofJson) { wp.SpotChecks = nil },
		"check missing index":  func(wp *WorkProofJson) { wp.SpotChecks[0].Index = nil },
		"check bad hash":       func(wp *WorkProofJson) { wp.SpotChecks[0].Hash = "zz" },
		"check missing prev":   func(wp *WorkProofJson) { wp.SpotChecks[0].Prev = "" },
	}
	for name, mutate := range cases {
		wp := workProofForTest(t, 0, "", 100)
		mutate(wp)
		w := doJSON(t, s.PostWorkProof, http.MethodPost, "/api/v1/beat/work-proof", wp)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	tooMany := workProofForTest(t, 0, "", 100)
	for len(tooMany.SpotChecks) <= 25 {
		tooMany.SpotChecks = append(tooMany.SpotChecks, tooMany.SpotChecks[0])
	}
	w := doJSON(t, s.PostWorkProof, http.MethodPost, "/api/v1/beat/work-proof", tooMany)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostWorkProofClampsDifficulty(t *testing.T) {
	s, _ := newTestServer(t)
	// Work computed at the public cap passes when a larger difficulty is
	// claimed; the receipt reports the clamped value.
	wp := workProofForTest(t, 0, "", 5000)
	wp.Difficulty = u32(1_000_000)
	resp := postWorkProof(t, s, wp)
	require.True(t, resp.Valid, resp.Reason)
	assert.Equal(t, uint32(5000), resp.Receipt.Difficulty)
}
