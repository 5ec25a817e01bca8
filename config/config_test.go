package config

import (
	"testing"

	"github.com/entropyio/go-statecore/common"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsACopy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chain.Genesis.Alloc[0].Balance = "1"
	cfg.Chain.MinValidators = 9

	assert.Equal(t, "100000000000000000000", MainChainConfig.Genesis.Alloc[0].Balance)
	assert.Equal(t, 4, MainChainConfig.MinValidators)
	assert.Equal(t, DefaultMinerConfig, cfg.Miner)
}

func TestChainConfigValidate(t *testing.T) {
	cfg := TestChainConfig.Copy()
	assert.NoError(t, cfg.Validate())

	cfg.Validators = []common.Address{{1}, {2}, {3}}
	assert.Error(t, cfg.Validate())

	cfg.Validators = []common.Address{{1}, {2}, {3}, {4}, {5}}
	assert.NoError(t, cfg.Validate())

	cfg.MinValidators = 0
	assert.Error(t, cfg.Validate())
}

func TestResolvePath(t *testing.T) {
	c := NodeConfig{DataDir: "/tmp/node"}
	assert.Equal(t, "/tmp/node/chaindata", c.ResolvePath("chaindata"))
	assert.Equal(t, "/abs", c.ResolvePath("/abs"))
	assert.Equal(t, "", (&NodeConfig{}).ResolvePath("chaindata"))
}
