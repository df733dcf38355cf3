package anchor

import (
	"sort"

	"github.com/provenonce/beats/crypto/beat"
)

type dedupeKey struct {
	beatIndex  uint64
	hash       string
	prevHash   string
	utc        int64
	difficulty uint32
	epoch      uint32
}

func wellFormed(a *beat.GlobalAnchor) bool {
	return a != nil &&
		beat.IsHexHash(a.Hash) &&
		beat.IsHexHash(a.PrevHash) &&
		a.Difficulty > 0 &&
		a.UTC >= 0
}

// depth counts how many prev_hash links of tip resolve inside the candidate
// set, including the tip itself. A tip nothing links to has depth 1.
func depth(tip *beat.GlobalAnchor, byHash map[string]*beat.GlobalAnchor) int {
	d := 1
	seen := map[string]bool{tip.Hash: true}
	cur := tip
	for {
		parent, ok := byHash[cur.PrevHash]
		if !ok || seen[parent.Hash] {
			return d
		}
		seen[parent.Hash] = true
		d++
		cur = parent
	}
}

// SelectCanonical picks the canonical tip from the anchors observed on the
// ledger. Tips whose prev_hash links resolve into the observed set (or that
// are the genesis anchor) are strictly preferred over unlinked tips of any
// height; ties break by beat_index desc, then depth desc, then hash asc.
// The result is invariant under input order.
func SelectCanonical(candidates []*beat.GlobalAnchor) *beat.GlobalAnchor {
	seen := make(map[dedupeKey]bool)
	var all []*beat.GlobalAnchor
	for _, a := range candidates {
		if !wellFormed(a) {
			continue
		}
		k := dedupeKey{a.BeatIndex, a.Hash, a.PrevHash, a.UTC, a.Difficulty, a.Epoch}
		if seen[k] {
			continue
		}
		seen[k] = true
		all = append(all, a)
	}
	if len(all) == 0 {
		return nil
	}

	byHash := make(map[string]*beat.GlobalAnchor, len(all))
	for _, a := range all {
		byHash[a.Hash] = a
	}
	depths := make(map[*beat.GlobalAnchor]int, len(all))
	var linked []*beat.GlobalAnchor
	genesisPrev := beat.GenesisPrevHash()
	for _, a := range all {
		depths[a] = depth(a, byHash)
		if (a.BeatIndex == 0 && a.PrevHash == genesisPrev) || depths[a] > 1 {
			linked = append(linked, a)
		}
	}

	pool := linked
	if len(pool) == 0 {
		pool = all
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].BeatIndex != pool[j].BeatIndex {
			return pool[i].BeatIndex > pool[j].BeatIndex
		}
		if depths[pool[i]] != depths[pool[j]] {
			return depths[pool[i]] > depths[pool[j]]
		}
		return pool[i].Hash < pool[j].Hash
	})
	return pool[0]
}

// IsContinuousNext reports whether incoming directly extends latest. Genesis
// anchors must start from the genesis prev hash; same-index replays and
// index jumps are rejected.
func IsContinuousNext(latest, incoming *beat.GlobalAnchor) bool {
	if !wellFormed(incoming) {
		return false
	}
	if latest == nil {
		return incoming.BeatIndex == 0 && incoming.PrevHash == beat.GenesisPrevHash()
	}
	return incoming.BeatIndex == latest.BeatIndex+1 && incoming.PrevHash == latest.Hash
}
