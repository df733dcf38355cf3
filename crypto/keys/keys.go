// Package keys holds the process-wide signing hierarchy. The ledger writer
// keypair doubles as the HKDF master secret; receipt signing keys are
// derived subkeys with distinct info strings so a timestamp receipt can
// never be replayed as a work-proof receipt.
package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"io"

	sha256 "github.com/minio/sha256-simd"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/provenonce/beats/encoding/canonicaljson"
	"golang.org/x/crypto/hkdf"
)

// Signing contexts for HKDF subkey derivation. Published via the key
// endpoint so third parties can document which subkey signs what.
const (
	TimestampReceiptContext = "provenonce:beats:timestamp-receipt:v1"
	WorkProofContext        = "provenonce:beats:work-proof:v1"
)

// Manager owns the writer keypair and the derived receipt signing keys.
// Immutable after construction.
type Manager struct {
	writerKey    ed25519.PrivateKey
	timestampKey ed25519.PrivateKey
	workProofKey ed25519.PrivateKey
}

// NewManager decodes the base58 anchor secret and derives the receipt
// subkeys. Both 64-byte expanded keypairs and bare 32-byte seeds are
// accepted.
func NewManager(secretBase58 string) (*Manager, error) {
	raw, err := base58.Decode(secretBase58)
	if err != nil {
		return nil, errors.Wrap(err, "anchor secret is not valid base58")
	}
	var writer ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		writer = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		writer = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, errors.Errorf("anchor secret must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
	master := writer.Seed()
	tsKey, err := deriveKey(master, TimestampReceiptContext)
	if err != nil {
		return nil, err
	}
	wpKey, err := deriveKey(master, WorkProofContext)
	if err != nil {
		return nil, err
	}
	return &Manager{
		writerKey:    writer,
		timestampKey: tsKey,
		workProofKey: wpKey,
	}, nil
}

func deriveKey(master []byte, info string) (ed25519.PrivateKey, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(info))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, errors.Wrapf(err, "hkdf expand for %q", info)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// WriterKey returns the ledger writer's private key.
func (m *Manager) WriterKey() ed25519.PrivateKey {
	return m.writerKey
}

// WriterAddress returns the base58 ledger address of the writer.
func (m *Manager) WriterAddress() string {
	return base58.Encode(m.writerKey.Public().(ed25519.PublicKey))
}

// PublicKey is one receipt verification key in both common renderings.
type PublicKey struct {
	Hex            string
	Base58         string
	SigningContext string
}

// TimestampPublicKey returns the timestamp receipt verification key.
func (m *Manager) TimestampPublicKey() PublicKey {
	return publicKey(m.timestampKey, TimestampReceiptContext)
}

// WorkProofPublicKey returns the work-proof receipt verification key.
func (m *Manager) WorkProofPublicKey() PublicKey {
	return publicKey(m.workProofKey, WorkProofContext)
}

func publicKey(key ed25519.PrivateKey, context string) PublicKey {
	pub := key.Public().(ed25519.PublicKey)
	return PublicKey{
		Hex:            hex.EncodeToString(pub),
		Base58:         base58.Encode(pub),
		SigningContext: context,
	}
}

// SignTimestampReceipt signs the canonical JSON of payload with the
// timestamp subkey and returns the base58 signature.
func (m *Manager) SignTimestampReceipt(payload interface{}) (string, error) {
	return sign(m.timestampKey, payload)
}

// SignWorkProofReceipt signs the canonical JSON of payload with the
// work-proof subkey and returns the base58 signature.
func (m *Manager) SignWorkProofReceipt(payload interface{}) (string, error) {
	return sign(m.workProofKey, payload)
}

func sign(key ed25519.PrivateKey, payload interface{}) (string, error) {
	msg, err := canonicaljson.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "canonicalize receipt payload")
	}
	return base58.Encode(ed25519.Sign(key, msg)), nil
}
