package params

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

var log = logrus.WithField("prefix", "params")

// LoadChainConfigFile loads a yaml file with config overrides on top of the
// mainnet defaults and installs the result as the process config.
func LoadChainConfigFile(path string) error {
	yamlFile, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return errors.Wrap(err, "failed to read chain config file")
	}
	conf := MainnetConfig().Copy()
	if err := yaml.UnmarshalStrict(yamlFile, conf); err != nil {
		return errors.Wrap(err, "failed to parse chain config file")
	}
	if err := conf.validate(); err != nil {
		return err
	}
	log.WithField("path", path).Info("Loaded chain config file")
	OverrideBeatsConfig(conf)
	return nil
}

func (c *BeatsChainConfig) validate() error {
	if c.MinDifficulty == 0 {
		return errors.New("MIN_DIFFICULTY must be positive")
	}
	if c.MaxDifficulty < c.MinDifficulty {
		return errors.New("MAX_DIFFICULTY below MIN_DIFFICULTY")
	}
	if c.PublicMaxDifficulty < c.MinDifficulty || c.PublicMaxDifficulty > c.MaxDifficulty {
		return errors.New("PUBLIC_MAX_DIFFICULTY outside difficulty band")
	}
	if c.RateLimitMaxKeys < 100 {
		return errors.New("RATE_LIMIT_MAX_KEYS must be at least 100")
	}
	if c.MemoMaxBytes <= 0 {
		return errors.New("MEMO_MAX_BYTES must be positive")
	}
	return nil
}
