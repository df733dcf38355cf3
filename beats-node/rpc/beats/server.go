// Package beats contains the HTTP handlers of the public Beats API.
package beats

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/provenonce/beats/beats-node/anchor"
	"github.com/provenonce/beats/beats-node/cache"
	"github.com/provenonce/beats/beats-node/ledger"
	"github.com/provenonce/beats/beats-node/rpc/ratelimit"
	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/keys"
	"github.com/provenonce/beats/network/httputil"
)

var verificationsByOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "beats_verifications_total",
	Help: "The number of verification requests by endpoint and outcome.",
}, []string{"endpoint", "outcome"})

// Server holds the dependencies of every Beats handler. All fields are set
// at construction and never mutated afterwards; the only shared mutable
// state lives inside the anchor cache and the limiters, which synchronize
// internally.
type Server struct {
	Ledger   ledger.Client
	Keys     *keys.Manager
	Anchors  *cache.AnchorCache
	Advancer *anchor.Advancer

	RequestLimiter         *ratelimit.FixedWindow
	TimestampMinuteLimiter *ratelimit.FixedWindow
	TimestampDayLimiter    *ratelimit.FixedWindow
	ProMinuteLimiter       *ratelimit.FixedWindow
	ProDayLimiter          *ratelimit.FixedWindow
	CostBudget             *ratelimit.CostBudget

	CronSecret   string
	ProTierToken string
	// Cluster is the explorer cluster query value; empty for mainnet.
	Cluster string
}

// rateLimit applies the general request limiter and returns the resolved
// client key. A false return means the response has been written.
func (s *Server) rateLimit(w http.ResponseWriter, r *http.Request) (string, bool) {
	ip := ratelimit.ClientIP(r)
	d := s.RequestLimiter.Check(ip)
	if !d.Allowed {
		writeRateLimited(w, d)
		return ip, false
	}
	return ip, true
}

func writeRateLimited(w http.ResponseWriter, d ratelimit.Decision) {
	retryAfter := (d.ResetAt - nowMs()) / 1000
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	httputil.HandleError(w, "rate limit exceeded", http.StatusTooManyRequests)
}

// allowCost draws difficulty*samples hash operations from the client's cost
// budget. A false return means the response has been written.
func (s *Server) allowCost(w http.ResponseWriter, key string, difficulty uint32, samples int) bool {
	cost := int64(difficulty) * int64(samples)
	if cost <= 0 {
		cost = 1
	}
	if s.CostBudget.Allow(key, cost) {
		return true
	}
	w.Header().Set("Retry-After", "1")
	httputil.HandleError(w, "hash operation budget exceeded", http.StatusTooManyRequests)
	return false
}

// requireJSON enforces an application/json content type on POST bodies.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType != "application/json" {
		httputil.HandleError(w, "content type must be application/json", http.StatusUnsupportedMediaType)
		return false
	}
	return true
}

// clampPublicDifficulty pulls d into the band public callers may use.
func clampPublicDifficulty(d uint32) uint32 {
	cfg := params.BeatsConfig()
	if d < cfg.MinDifficulty {
		return cfg.MinDifficulty
	}
	if d > cfg.PublicMaxDifficulty {
		return cfg.PublicMaxDifficulty
	}
	return d
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func (s *Server) explorerURL(signature string) string {
	url := "https://explorer.solana.com/tx/" + signature
	if s.Cluster != "" {
		url += "?cluster=" + s.Cluster
	}
	return url
}
