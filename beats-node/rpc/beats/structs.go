package beats

// BeatJson is the wire form of one beat.
type BeatJson struct {
	Index      *uint64 `json:"index"`
	Hash       string  `json:"hash"`
	Prev       string  `json:"prev"`
	Nonce      string  `json:"nonce,omitempty"`
	AnchorHash string  `json:"anchor_hash,omitempty"`
}

// SpotCheckJson is the wire form of one spot check.
type SpotCheckJson struct {
	Index *uint64 `json:"index"`
	Hash  string  `json:"hash"`
	Prev  string  `json:"prev"`
	Nonce string  `json:"nonce,omitempty"`
}

// ProofJson is the wire form of a check-in proof.
type ProofJson struct {
	FromBeat      *uint64         `json:"from_beat"`
	ToBeat        *uint64         `json:"to_beat"`
	FromHash      string          `json:"from_hash"`
	ToHash        string          `json:"to_hash"`
	BeatsComputed *uint64         `json:"beats_computed"`
	AnchorHash    string          `json:"anchor_hash,omitempty"`
	SpotChecks    []SpotCheckJson `json:"spot_checks"`
}

// VerifyRequest is the tagged-variant body of the verify endpoint; Mode
// selects which of the per-mode fields apply.
type VerifyRequest struct {
	Mode       string     `json:"mode"`
	Difficulty *uint32    `json:"difficulty"`
	Beat       *BeatJson  `json:"beat"`
	Beats      []BeatJson `json:"beats"`
	SpotChecks *int       `json:"spot_checks"`
	Proof      *ProofJson `json:"proof"`
}

// VerifyMetadataResponse describes the verify endpoint for GET callers.
type VerifyMetadataResponse struct {
	Service       string         `json:"service"`
	Modes         []string       `json:"modes"`
	Difficulty    DifficultyBand `json:"difficulty"`
	MaxChainBeats int            `json:"max_chain_beats"`
	MaxSpotChecks int            `json:"max_spot_checks"`
}

// DifficultyBand is the allowed difficulty range for public callers.
type DifficultyBand struct {
	Min       uint32 `json:"min"`
	Max       uint32 `json:"max"`
	PublicMax uint32 `json:"public_max"`
}

// VerifyBeatResponse is the beat-mode result.
type VerifyBeatResponse struct {
	Valid      bool   `json:"valid"`
	BeatIndex  uint64 `json:"beat_index"`
	Difficulty uint32 `json:"difficulty"`
}

// VerifyChainResponse is the chain-mode result.
type VerifyChainResponse struct {
	Valid         bool  `json:"valid"`
	ChainLength   int   `json:"chain_length"`
	BeatsChecked  int   `json:"beats_checked"`
	FailedIndices []int `json:"failed_indices"`
}

// VerifyProofResponse is the proof-mode result.
type VerifyProofResponse struct {
	Valid              bool   `json:"valid"`
	Reason             string `json:"reason,omitempty"`
	SpotChecksVerified int    `json:"spot_checks_verified"`
}

// WorkProofJson is the wire form of a work-proof submission, either flat or
// wrapped in {"work_proof": ...}.
type WorkProofJson struct {
	FromHash      string          `json:"from_hash"`
	ToHash        string          `json:"to_hash"`
	BeatsComputed *uint64         `json:"beats_computed"`
	Difficulty    *uint32         `json:"difficulty"`
	AnchorIndex   *uint64         `json:"anchor_index"`
	AnchorHash    string          `json:"anchor_hash,omitempty"`
	SpotChecks    []SpotCheckJson `json:"spot_checks"`
}

// WorkProofReceipt is the signed work-proof receipt. Signature covers the
// canonical JSON of the receipt without the signature field.
type WorkProofReceipt struct {
	Type               string `json:"type"`
	FromHash           string `json:"from_hash"`
	ToHash             string `json:"to_hash"`
	BeatsComputed      uint64 `json:"beats_computed"`
	Difficulty         uint32 `json:"difficulty"`
	AnchorIndex        uint64 `json:"anchor_index"`
	AnchorHash         string `json:"anchor_hash,omitempty"`
	SpotChecksVerified int    `json:"spot_checks_verified"`
	UTC                int64  `json:"utc"`
	PublicKey          string `json:"public_key"`
	Signature          string `json:"signature,omitempty"`
}

// WorkProofResponse is the work-proof endpoint result.
type WorkProofResponse struct {
	Valid   bool              `json:"valid"`
	Reason  string            `json:"reason,omitempty"`
	Receipt *WorkProofReceipt `json:"receipt,omitempty"`
}

// TimestampRequest binds a digest to the current anchor.
type TimestampRequest struct {
	Hash string `json:"hash"`
}

// TimestampPayload is the signed portion of a timestamp receipt.
type TimestampPayload struct {
	Type        string `json:"type"`
	Hash        string `json:"hash"`
	AnchorIndex uint64 `json:"anchor_index"`
	AnchorHash  string `json:"anchor_hash"`
	UTC         int64  `json:"utc"`
	TxSignature string `json:"tx_signature"`
}

// ReceiptJson carries a detached signature and its verification key.
type ReceiptJson struct {
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
}

// OnChainJson points at the ledger transaction carrying the memo.
type OnChainJson struct {
	TxSignature string `json:"tx_signature"`
	ExplorerURL string `json:"explorer_url"`
}

// TimestampResponse is the timestamp endpoint result.
type TimestampResponse struct {
	Timestamp *TimestampPayload `json:"timestamp"`
	OnChain   *OnChainJson      `json:"on_chain"`
	Receipt   *ReceiptJson      `json:"receipt"`
	Tier      string            `json:"tier"`
}

// AnchorJson is the wire form of a global anchor.
type AnchorJson struct {
	BeatIndex     uint64 `json:"beat_index"`
	Hash          string `json:"hash"`
	PrevHash      string `json:"prev_hash"`
	UTC           int64  `json:"utc"`
	Difficulty    uint32 `json:"difficulty"`
	Epoch         uint32 `json:"epoch"`
	SolanaEntropy string `json:"solana_entropy,omitempty"`
	Signature     string `json:"signature,omitempty"`
}

// AnchorReceiptPayload is the signed portion of an anchor receipt.
type AnchorReceiptPayload struct {
	Type          string `json:"type"`
	BeatIndex     uint64 `json:"beat_index"`
	Hash          string `json:"hash"`
	PrevHash      string `json:"prev_hash"`
	UTC           int64  `json:"utc"`
	Difficulty    uint32 `json:"difficulty"`
	Epoch         uint32 `json:"epoch"`
	SolanaEntropy string `json:"solana_entropy,omitempty"`
}

// AnchorResponse is the anchor endpoint result.
type AnchorResponse struct {
	Anchor  *AnchorJson  `json:"anchor"`
	Receipt *ReceiptJson `json:"receipt"`
}

// PublicKeyJson is one receipt verification key.
type PublicKeyJson struct {
	PublicKeyHex    string `json:"public_key_hex"`
	PublicKeyBase58 string `json:"public_key_base58"`
	SigningContext  string `json:"signing_context"`
}

// KeysResponse lists both receipt verification keys.
type KeysResponse struct {
	Algorithm string         `json:"algorithm"`
	Timestamp *PublicKeyJson `json:"timestamp"`
	WorkProof *PublicKeyJson `json:"work_proof"`
}

// HealthTiming reports the clock parameters of the service.
type HealthTiming struct {
	AnchorIntervalMs  int64  `json:"anchor_interval_ms"`
	AnchorGraceWindow uint64 `json:"anchor_grace_window"`
	AnchorCacheTTLMs  int64  `json:"anchor_cache_ttl_ms"`
}

// HealthAnchor summarizes the current tip.
type HealthAnchor struct {
	BeatIndex uint64 `json:"beat_index"`
	Hash      string `json:"hash"`
	UTC       int64  `json:"utc"`
	AgeMs     int64  `json:"age_ms"`
}

// HealthResponse is the health endpoint result.
type HealthResponse struct {
	Service      string        `json:"service"`
	Status       string        `json:"status"`
	Timestamp    int64         `json:"timestamp"`
	Anchor       *HealthAnchor `json:"anchor,omitempty"`
	AnchorSigner string        `json:"anchor_signer"`
	Timing       *HealthTiming `json:"timing"`
	Operations   []string      `json:"operations"`
}
