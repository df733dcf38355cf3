// Package anchor implements the anchor memo wire codec, the
// continuity-aware canonical tip selection, and the cron-driven anchor
// advancer.
package anchor

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/beat"
	"github.com/provenonce/beats/encoding/canonicaljson"
)

// Some ledger layers prefix memo payloads with "[n] " where n is the memo
// instruction index. Stripped on parse, never emitted on write.
var memoPrefix = regexp.MustCompile(`^\[\d+\] `)

type wireMemo struct {
	V             json.Number `json:"v"`
	Type          string      `json:"type"`
	BeatIndex     json.Number `json:"beat_index"`
	Hash          string      `json:"hash"`
	Prev          string      `json:"prev"`
	UTC           json.Number `json:"utc"`
	Difficulty    json.Number `json:"difficulty"`
	Epoch         json.Number `json:"epoch"`
	SolanaEntropy string      `json:"solana_entropy"`
}

func nonNegativeInt(n json.Number) (uint64, bool) {
	if n == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(string(n), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseMemo interprets one ledger memo as an anchor. Anything that is not a
// well-formed anchor memo returns ok=false; that is an expected outcome for
// foreign memos on the writer account, not an error.
func ParseMemo(memo string) (*beat.GlobalAnchor, bool) {
	memo = memoPrefix.ReplaceAllString(memo, "")
	dec := json.NewDecoder(bytes.NewReader([]byte(memo)))
	dec.UseNumber()
	var w wireMemo
	if err := dec.Decode(&w); err != nil {
		return nil, false
	}
	if v, ok := nonNegativeInt(w.V); !ok || v != 1 {
		return nil, false
	}
	if w.Type != "anchor" {
		return nil, false
	}
	index, ok := nonNegativeInt(w.BeatIndex)
	if !ok {
		return nil, false
	}
	if !beat.IsHexHash(w.Hash) || !beat.IsHexHash(w.Prev) {
		return nil, false
	}
	utc, ok := nonNegativeInt(w.UTC)
	if !ok {
		return nil, false
	}
	difficulty, ok := nonNegativeInt(w.Difficulty)
	if !ok || difficulty == 0 || difficulty > uint64(^uint32(0)) {
		return nil, false
	}
	epoch, ok := nonNegativeInt(w.Epoch)
	if !ok || epoch > uint64(^uint32(0)) {
		return nil, false
	}
	return &beat.GlobalAnchor{
		BeatIndex:     index,
		Hash:          w.Hash,
		PrevHash:      w.Prev,
		UTC:           int64(utc),
		Difficulty:    uint32(difficulty),
		Epoch:         uint32(epoch),
		SolanaEntropy: w.SolanaEntropy,
	}, true
}

// SerializeMemo renders an anchor as its canonical wire memo. The in-memory
// prev_hash field travels as "prev" on the wire.
func SerializeMemo(a *beat.GlobalAnchor) ([]byte, error) {
	m := map[string]interface{}{
		"v":          1,
		"type":       "anchor",
		"beat_index": a.BeatIndex,
		"hash":       a.Hash,
		"prev":       a.PrevHash,
		"utc":        a.UTC,
		"difficulty": a.Difficulty,
		"epoch":      a.Epoch,
	}
	if a.SolanaEntropy != "" {
		m["solana_entropy"] = a.SolanaEntropy
	}
	out, err := canonicaljson.Marshal(m)
	if err != nil {
		return nil, err
	}
	if max := params.BeatsConfig().MemoMaxBytes; len(out) > max {
		return nil, errors.Errorf("anchor memo is %d bytes, limit %d", len(out), max)
	}
	return out, nil
}
