package ratelimit

import (
	"net/http"
	"strings"
)

// ClientIP resolves the caller address from proxy headers, most trusted
// first. The last element of X-Forwarded-For is the hop closest to us and
// the hardest for the client to spoof.
func ClientIP(r *http.Request) string {
	for _, header := range []string{"X-Vercel-Forwarded-For", "X-Real-Ip", "Cf-Connecting-Ip"} {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if v := strings.TrimSpace(parts[len(parts)-1]); v != "" {
			return v
		}
	}
	return "127.0.0.1"
}
