package beats

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/provenonce/beats/beats-node/anchor"
	"github.com/provenonce/beats/network/httputil"
	"go.opencensus.io/trace"
)

// GetCronAnchor advances the anchor chain. It is invoked by an external
// scheduler on the anchor cadence and authenticated by a bearer secret
// compared in constant time. No CORS headers are injected on this route.
func (s *Server) GetCronAnchor(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "beats.GetCronAnchor")
	defer span.End()
	start := time.Now()

	if s.CronSecret == "" {
		httputil.HandleError(w, "cron secret not configured", http.StatusServiceUnavailable)
		return
	}
	expected := "Bearer " + s.CronSecret
	got := r.Header.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		httputil.HandleError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := s.Advancer.Advance(ctx)
	if err != nil {
		if errors.Is(err, anchor.ErrEntropyUnavailable) {
			httputil.HandleError(w, "external entropy unavailable", http.StatusServiceUnavailable)
			return
		}
		log.WithError(err).WithField("elapsed_ms", time.Since(start).Milliseconds()).Error("Anchor advance failed")
		httputil.HandleError(w, "anchor advance failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if result.Status == "generated" {
		s.Anchors.Invalidate()
	}
	httputil.WriteJson(w, result)
}
