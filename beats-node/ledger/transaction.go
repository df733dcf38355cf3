package ledger

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MemoProgramID is the SPL Memo program.
const MemoProgramID = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"

// appendCompactU16 appends v in the shortvec encoding used by legacy
// transactions.
func appendCompactU16(b []byte, v uint16) []byte {
	for {
		if v < 0x80 {
			return append(b, byte(v))
		}
		b = append(b, byte(v&0x7f)|0x80)
		v >>= 7
	}
}

// buildMemoTransaction assembles and signs a single-signer legacy
// transaction carrying one Memo program instruction. Returns the serialized
// transaction and its base58 signature.
func buildMemoTransaction(writerKey ed25519.PrivateKey, recentBlockhash string, memo []byte) ([]byte, string, error) {
	writerPub := writerKey.Public().(ed25519.PublicKey)
	programID, err := base58.Decode(MemoProgramID)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode memo program id")
	}
	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return nil, "", errors.New("recent blockhash must be 32 base58-encoded bytes")
	}
	if len(memo) > 0xffff {
		return nil, "", errors.Errorf("memo too large: %d bytes", len(memo))
	}

	// Message header: one required signature (the fee-paying writer), no
	// read-only signed accounts, one read-only unsigned account (the memo
	// program).
	var msg []byte
	msg = append(msg, 1, 0, 1)
	msg = appendCompactU16(msg, 2)
	msg = append(msg, writerPub...)
	msg = append(msg, programID...)
	msg = append(msg, blockhash...)
	msg = appendCompactU16(msg, 1)
	msg = append(msg, 1) // program id index
	msg = appendCompactU16(msg, 0)
	msg = appendCompactU16(msg, uint16(len(memo)))
	msg = append(msg, memo...)

	sig := ed25519.Sign(writerKey, msg)
	var tx []byte
	tx = appendCompactU16(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)
	return tx, base58.Encode(sig), nil
}
