package beat

import (
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"

	sha256 "github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/provenonce/beats/config/params"
)

// GlobalAnchor is a beat published to the public ledger; the anchor chain is
// the canonical clock every proof is measured against.
type GlobalAnchor struct {
	BeatIndex     uint64
	Hash          string
	PrevHash      string
	UTC           int64
	Difficulty    uint32
	Epoch         uint32
	SolanaEntropy string
	Signature     string
}

// GenesisPrevHash is the prev_hash of the index-0 anchor.
func GenesisPrevHash() string {
	return sha256Hex(params.BeatsConfig().GenesisSeed)
}

// anchorNonce is the V1 nonce binding an anchor's wall-clock time and epoch
// into its seed.
func anchorNonce(utc int64, epoch uint32) string {
	return "anchor:" + strconv.FormatInt(utc, 10) + ":" + strconv.FormatUint(uint64(epoch), 10)
}

// ComputeAnchorHashV3 hashes the 91-byte preimage
// UTF8(prefix)(19B) || prev_hash(32B) || u64_be(beat_index)(8B) || entropy(32B)
// with a single SHA-256. Unlike V1, no difficulty iteration is applied; the
// external entropy already makes the anchor unpredictable.
func ComputeAnchorHashV3(prevHash string, beatIndex uint64, entropyBase58 string) (string, error) {
	prev, err := hex.DecodeString(prevHash)
	if err != nil || len(prev) != 32 {
		return "", errors.New("prev_hash must be 32 hex-encoded bytes")
	}
	entropy, err := base58.Decode(entropyBase58)
	if err != nil {
		return "", errors.Wrap(err, "invalid base58 entropy")
	}
	if len(entropy) != 32 {
		return "", errors.Errorf("entropy must be 32 bytes, got %d", len(entropy))
	}
	prefix := []byte(params.BeatsConfig().AnchorDomainPrefix)
	preimage := make([]byte, 0, len(prefix)+32+8+32)
	preimage = append(preimage, prefix...)
	preimage = append(preimage, prev...)
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], beatIndex)
	preimage = append(preimage, idx[:]...)
	preimage = append(preimage, entropy...)
	sum := sha256.Sum256(preimage)
	return hex.EncodeToString(sum[:]), nil
}

// CreateGlobalAnchor computes the next anchor after prev. A nil prev yields
// the genesis anchor. When entropy is present the V3 formula is used,
// otherwise the legacy V1 beat formula.
func CreateGlobalAnchor(prev *GlobalAnchor, difficulty uint32, epoch uint32, entropy string) (*GlobalAnchor, error) {
	prevHash := GenesisPrevHash()
	var index uint64
	if prev != nil {
		prevHash = prev.Hash
		index = prev.BeatIndex + 1
	}
	a := &GlobalAnchor{
		BeatIndex:     index,
		PrevHash:      prevHash,
		UTC:           time.Now().UnixMilli(),
		Difficulty:    difficulty,
		Epoch:         epoch,
		SolanaEntropy: entropy,
	}
	if entropy != "" {
		h, err := ComputeAnchorHashV3(prevHash, index, entropy)
		if err != nil {
			return nil, err
		}
		a.Hash = h
		return a, nil
	}
	a.Hash = ComputeBeat(prevHash, index, difficulty, anchorNonce(a.UTC, epoch), "").Hash
	return a, nil
}

// VerifyGlobalAnchor recomputes the anchor hash, dispatching on the
// presence of external entropy.
func (a *GlobalAnchor) VerifyGlobalAnchor() bool {
	if a == nil || a.Difficulty == 0 || a.UTC < 0 {
		return false
	}
	if !IsHexHash(a.Hash) || !IsHexHash(a.PrevHash) {
		return false
	}
	if a.SolanaEntropy != "" {
		h, err := ComputeAnchorHashV3(a.PrevHash, a.BeatIndex, a.SolanaEntropy)
		if err != nil {
			return false
		}
		return h == a.Hash
	}
	computed := ComputeBeat(a.PrevHash, a.BeatIndex, a.Difficulty, anchorNonce(a.UTC, a.Epoch), "")
	return computed.Hash == a.Hash
}
