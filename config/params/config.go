// Package params defines the configurable values for the Beats service, with
// mainnet defaults matching the published interoperability constants.
package params

import "time"

// BeatsChainConfig contains every constant the hash chain, the anchor
// advancer and the public endpoints agree on. Changing any of the wire-level
// values breaks interoperability with existing verifiers.
type BeatsChainConfig struct {
	// Chain identity constants. These are hashed into every beat and must
	// never change.
	GenesisSeed        string `yaml:"GENESIS_SEED"`
	AnchorDomainPrefix string `yaml:"ANCHOR_DOMAIN_PREFIX"`

	// Difficulty band.
	MinDifficulty       uint32 `yaml:"MIN_DIFFICULTY"`
	MaxDifficulty       uint32 `yaml:"MAX_DIFFICULTY"`
	PublicMaxDifficulty uint32 `yaml:"PUBLIC_MAX_DIFFICULTY"`
	DefaultDifficulty   uint32 `yaml:"DEFAULT_DIFFICULTY"`

	// Anchor cadence.
	AnchorInterval    time.Duration `yaml:"ANCHOR_INTERVAL"`
	AnchorGraceWindow uint64        `yaml:"ANCHOR_GRACE_WINDOW"`

	// Public verification caps.
	PublicMaxSpotChecks int `yaml:"PUBLIC_MAX_SPOT_CHECKS"`
	MaxChainBeats       int `yaml:"MAX_CHAIN_BEATS"`

	// Ledger publishing.
	MemoMaxBytes        int           `yaml:"MEMO_MAX_BYTES"`
	MinWriterBalance    uint64        `yaml:"MIN_WRITER_BALANCE"`
	PublishTimeout      time.Duration `yaml:"PUBLISH_TIMEOUT"`
	PublishPollInterval time.Duration `yaml:"PUBLISH_POLL_INTERVAL"`
	RecentMemoLimit     int           `yaml:"RECENT_MEMO_LIMIT"`

	// Anchor cache.
	AnchorCacheTTL time.Duration `yaml:"ANCHOR_CACHE_TTL"`

	// Rate limiting.
	RequestsPerMinute  int `yaml:"REQUESTS_PER_MINUTE"`
	TimestampPerMinute int `yaml:"TIMESTAMP_PER_MINUTE"`
	TimestampPerDay    int `yaml:"TIMESTAMP_PER_DAY"`
	ProTierPerMinute   int `yaml:"PRO_TIER_PER_MINUTE"`
	ProTierPerDay      int `yaml:"PRO_TIER_PER_DAY"`
	RateLimitMaxKeys   int `yaml:"RATE_LIMIT_MAX_KEYS"`

	// Hash-operation budget for the verification endpoints.
	HashOpsBurst  int64   `yaml:"HASH_OPS_BURST"`
	HashOpsPerSec float64 `yaml:"HASH_OPS_PER_SEC"`

	// Request body caps in bytes.
	MaxRequestBody   int64 `yaml:"MAX_REQUEST_BODY"`
	MaxTimestampBody int64 `yaml:"MAX_TIMESTAMP_BODY"`
}

var beatsConfig = MainnetConfig()

// BeatsConfig retrieves the beats chain config.
func BeatsConfig() *BeatsChainConfig {
	return beatsConfig
}

// OverrideBeatsConfig replaces the process-wide config. The preferred
// pattern is to call this once at startup, before any chain computation
// happens.
func OverrideBeatsConfig(c *BeatsChainConfig) {
	beatsConfig = c
}

// Copy returns a copy of the config so callers can mutate it safely before
// overriding.
func (c *BeatsChainConfig) Copy() *BeatsChainConfig {
	config := *c
	return &config
}
