package params

import "time"

// MainnetConfig returns the configuration used against the public ledger.
func MainnetConfig() *BeatsChainConfig {
	return mainnetBeatsConfig
}

// UseMainnetConfig for the beats service.
func UseMainnetConfig() {
	beatsConfig = MainnetConfig()
}

var mainnetBeatsConfig = &BeatsChainConfig{
	// Chain identity constants (non-configurable).
	GenesisSeed:        "provenonce:beat:genesis:v1:2026",
	AnchorDomainPrefix: "PROVENONCE_BEATS_V1",

	// Difficulty band.
	MinDifficulty:       100,
	MaxDifficulty:       1_000_000,
	PublicMaxDifficulty: 5000,
	DefaultDifficulty:   1000,

	// Anchor cadence.
	AnchorInterval:    60 * time.Second,
	AnchorGraceWindow: 5,

	// Public verification caps.
	PublicMaxSpotChecks: 25,
	MaxChainBeats:       1000,

	// Ledger publishing.
	MemoMaxBytes:        566,
	MinWriterBalance:    5000,
	PublishTimeout:      60 * time.Second,
	PublishPollInterval: 2 * time.Second,
	RecentMemoLimit:     50,

	// Anchor cache.
	AnchorCacheTTL: 10 * time.Second,

	// Rate limiting.
	RequestsPerMinute:  60,
	TimestampPerMinute: 5,
	TimestampPerDay:    10,
	ProTierPerMinute:   30,
	ProTierPerDay:      500,
	RateLimitMaxKeys:   20_000,

	// A verify request costs at most PUBLIC_MAX_SPOT_CHECKS *
	// PUBLIC_MAX_DIFFICULTY = 125k hash operations; the burst allows two
	// such requests back to back per client.
	HashOpsBurst:  250_000,
	HashOpsPerSec: 5_000,

	// Request body caps.
	MaxRequestBody:   1 << 20,
	MaxTimestampBody: 256,
}
