package beats

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sha256 "github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
	"github.com/provenonce/beats/beats-node/anchor"
	"github.com/provenonce/beats/beats-node/cache"
	ledgertest "github.com/provenonce/beats/beats-node/ledger/testing"
	"github.com/provenonce/beats/beats-node/rpc/ratelimit"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/provenonce/beats/crypto/keys"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }
func u32(v uint32) *uint32 { return &v }

func hexDigest(label string) string {
	sum := sha256.Sum256([]byte(label))
	return hex.EncodeToString(sum[:])
}

func newTestServer(t *testing.T) (*Server, *ledgertest.FakeLedger) {
	t.Helper()
	fake := ledgertest.NewFakeLedger()
	km, err := keys.NewManager(base58.Encode(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	generous := func() *ratelimit.FixedWindow {
		return ratelimit.NewFixedWindow(100000, time.Minute, 1000)
	}
	return &Server{
		Ledger:                 fake,
		Keys:                   km,
		Anchors:                cache.NewAnchorCache(fake),
		Advancer:               &anchor.Advancer{Ledger: fake},
		RequestLimiter:         generous(),
		TimestampMinuteLimiter: generous(),
		TimestampDayLimiter:    generous(),
		ProMinuteLimiter:       generous(),
		ProDayLimiter:          generous(),
		CostBudget:             ratelimit.NewCostBudget(1<<40, 1<<20),
		CronSecret:             "cron-secret",
		ProTierToken:           "pro-token",
		Cluster:                "devnet",
	}, fake
}

// publishTip places a well-formed anchor at the given index on the fake
// ledger with a current utc.
func publishTip(t *testing.T, fake *ledgertest.FakeLedger, index uint64) *beat.GlobalAnchor {
	t.Helper()
	a := &beat.GlobalAnchor{
		BeatIndex:  index,
		Hash:       hexDigest("tip-anchor"),
		PrevHash:   beat.GenesisPrevHash(),
		UTC:        time.Now().UnixMilli(),
		Difficulty: 1000,
	}
	memo, err := anchor.SerializeMemo(a)
	require.NoError(t, err)
	_, err = fake.PublishMemo(context.Background(), memo)
	require.NoError(t, err)
	return a
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == nil {
		r = httptest.NewRequest(method, target, nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, target, bytes.NewReader(raw))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}
