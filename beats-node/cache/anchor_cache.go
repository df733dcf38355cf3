// Package cache implements the read-through anchor cache that shields the
// ledger from per-request tip reads.
package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/provenonce/beats/beats-node/anchor"
	"github.com/provenonce/beats/beats-node/ledger"
	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/beat"
)

const latestAnchorKey = "latest"

var (
	anchorCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beats_anchor_cache_hit",
		Help: "The total number of anchor cache hits.",
	})
	anchorCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beats_anchor_cache_miss",
		Help: "The total number of anchor cache misses.",
	})
)

// AnchorCache is a single-slot TTL cache in front of the ledger tip read.
// On expiry the next caller refreshes; a few concurrent refreshes after
// expiry are acceptable, so no stampede protection is applied.
type AnchorCache struct {
	client ledger.Client
	c      *gocache.Cache
}

// NewAnchorCache builds the cache over the given ledger client.
func NewAnchorCache(client ledger.Client) *AnchorCache {
	ttl := params.BeatsConfig().AnchorCacheTTL
	return &AnchorCache{
		client: client,
		c:      gocache.New(ttl, 2*ttl),
	}
}

// Latest returns the canonical tip, refreshing from the ledger when the
// cached snapshot has expired. A nil anchor with nil error means no anchor
// has been published yet; empty tips are not cached so a cold-started chain
// becomes visible as soon as its first anchor lands.
func (ac *AnchorCache) Latest(ctx context.Context) (*beat.GlobalAnchor, error) {
	if v, ok := ac.c.Get(latestAnchorKey); ok {
		anchorCacheHit.Inc()
		return v.(*beat.GlobalAnchor), nil
	}
	anchorCacheMiss.Inc()
	tip, err := anchor.ReadLatest(ctx, ac.client)
	if err != nil {
		return nil, err
	}
	if tip != nil {
		ac.c.SetDefault(latestAnchorKey, tip)
	}
	return tip, nil
}

// Invalidate drops the cached tip so the next read goes to the ledger.
func (ac *AnchorCache) Invalidate() {
	ac.c.Delete(latestAnchorKey)
}
