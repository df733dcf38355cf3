package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadChainConfigFileOverrides(t *testing.T) {
	prev := BeatsConfig()
	defer OverrideBeatsConfig(prev)

	path := writeConfigFile(t, "DEFAULT_DIFFICULTY: 2000\nPUBLIC_MAX_SPOT_CHECKS: 10\n")
	require.NoError(t, LoadChainConfigFile(path))

	cfg := BeatsConfig()
	assert.Equal(t, uint32(2000), cfg.DefaultDifficulty)
	assert.Equal(t, 10, cfg.PublicMaxSpotChecks)
	// Everything else keeps the mainnet defaults.
	assert.Equal(t, uint32(100), cfg.MinDifficulty)
	assert.Equal(t, "provenonce:beat:genesis:v1:2026", cfg.GenesisSeed)
}

func TestLoadChainConfigFileRejectsUnknownKeys(t *testing.T) {
	path := writeConfigFile(t, "NOT_A_KEY: 1\n")
	assert.Error(t, LoadChainConfigFile(path))
}

func TestLoadChainConfigFileValidates(t *testing.T) {
	cases := []string{
		"MIN_DIFFICULTY: 0\n",
		"MAX_DIFFICULTY: 50\n",
		"PUBLIC_MAX_DIFFICULTY: 2000000\n",
		"RATE_LIMIT_MAX_KEYS: 10\n",
		"MEMO_MAX_BYTES: 0\n",
	}
	for _, content := range cases {
		path := writeConfigFile(t, content)
		assert.Error(t, LoadChainConfigFile(path), content)
	}
}

func TestLoadChainConfigFileMissing(t *testing.T) {
	assert.Error(t, LoadChainConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestCopyIsIndependent(t *testing.T) {
	c := MainnetConfig().Copy()
	c.DefaultDifficulty = 1
	assert.NotEqual(t, c.DefaultDifficulty, MainnetConfig().DefaultDifficulty)
}
