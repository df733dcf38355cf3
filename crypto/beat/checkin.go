package beat

import "fmt"

// SpotCheck exposes one beat of a prover's chain so a verifier can recompute
// its hash.
type SpotCheck struct {
	Index uint64
	Hash  string
	Prev  string
	Nonce string
}

// CheckinProof claims that beats [FromBeat, ToBeat] were computed
// sequentially, optionally bound to an anchor hash.
type CheckinProof struct {
	FromBeat      uint64
	ToBeat        uint64
	FromHash      string
	ToHash        string
	BeatsComputed uint64
	AnchorHash    string
	SpotChecks    []SpotCheck
}

// CheckinResult reports the outcome of check-in proof verification. Reason
// is set only when Valid is false.
type CheckinResult struct {
	Valid              bool
	Reason             string
	SpotChecksVerified int
}

func invalid(reason string) CheckinResult {
	return CheckinResult{Valid: false, Reason: reason}
}

// VerifyCheckinProof validates the proof's accounting and recomputes every
// spot check at the given difficulty. The claimed window must be
// forward-moving, match the beat count, include the final beat among its
// spot checks, and every spot check must carry its prev hash.
func VerifyCheckinProof(p CheckinProof, difficulty uint32) CheckinResult {
	claimed := int64(p.ToBeat) - int64(p.FromBeat)
	if p.BeatsComputed != uint64(claimed) || claimed < 0 {
		return invalid("Beat count mismatch")
	}
	if p.ToBeat <= p.FromBeat {
		return invalid("Beat range must be forward-moving")
	}
	if p.BeatsComputed > 0 {
		required := uint64(3)
		if p.BeatsComputed < required {
			required = p.BeatsComputed
		}
		if uint64(len(p.SpotChecks)) < required {
			return invalid(fmt.Sprintf("Insufficient spot checks: %d provided, at least %d required", len(p.SpotChecks), required))
		}
	}
	hasEndpoint := false
	for _, sc := range p.SpotChecks {
		if sc.Index == p.ToBeat {
			hasEndpoint = true
			break
		}
	}
	if !hasEndpoint {
		return invalid(fmt.Sprintf("Spot checks must include to_beat %d", p.ToBeat))
	}
	for _, sc := range p.SpotChecks {
		if sc.Prev == "" {
			return invalid(fmt.Sprintf("Spot check at index %d missing prev", sc.Index))
		}
		b := Beat{
			Index:      sc.Index,
			Hash:       sc.Hash,
			Prev:       sc.Prev,
			Nonce:      sc.Nonce,
			AnchorHash: p.AnchorHash,
		}
		if !VerifyBeat(b, difficulty) {
			return invalid(fmt.Sprintf("Spot check failed at index %d", sc.Index))
		}
	}
	return CheckinResult{Valid: true, SpotChecksVerified: len(p.SpotChecks)}
}
