package config

import (
	"fmt"
	"time"

	"github.com/entropyio/go-statecore/common"
	"github.com/mohae/deepcopy"
)

// Original bootstrap accounts, each seeded with 100 * 10^18 on an empty store.
var DefaultGenesisAlloc = []GenesisAccount{
	{Address: common.HexToAddress("0x21B782f9BF82418A42d034517CB6Bf00b4C17612"), Balance: "100000000000000000000"},
	{Address: common.HexToAddress("0xb3Dc9ed7f450d188c9B5a44f679a1dDBb4Cbd6D2"), Balance: "100000000000000000000"},
	{Address: common.HexToAddress("0x12e7742c063Dff92dA0439430DFe8A05ce0d297e"), Balance: "100000000000000000000"},
	{Address: common.HexToAddress("0xaE33707325C17CD37331278ccb74d2Ba9bFa6c92"), Balance: "100000000000000000000"},
}

// DefaultValidators is the genesis validator set of the local network.
var DefaultValidators = []common.Address{
	common.HexToAddress("0x7588b0f553d1910266089c58822e1120db47e572"),
	common.HexToAddress("0xcabf34a268847a610287709d841e5cd590cc5c00"),
	common.HexToAddress("0x5fb516dc2cfc1288e689ed377a9eebe2216cf1e3"),
	common.HexToAddress("0x795083c42583842774febc21abb6df09e784fce5"),
	common.HexToAddress("0xbec42e9e7ef4bd0d4ad01af9e2ba0e9ff0dbe72e"),
}

// DefaultValidatorContract is the address coordination transactions are sent to.
var DefaultValidatorContract = common.HexToAddress("0x0000000000000000000000000000000000001000")

var (
	// MainChainConfig contains the chain parameters to run a node on the local network.
	MainChainConfig = &ChainConfig{
		ChainID:           8848,
		MinValidators:     4,
		Validators:        DefaultValidators,
		ValidatorContract: DefaultValidatorContract,
		FaucetAmount:      "1000000000000000000",
		Genesis: GenesisConfig{
			Timestamp: 1656356645000000,
			Alloc:     DefaultGenesisAlloc,
		},
	}

	// TestChainConfig is used by unit tests; it has no genesis accounts.
	TestChainConfig = &ChainConfig{
		ChainID:           1337,
		MinValidators:     4,
		ValidatorContract: DefaultValidatorContract,
		FaucetAmount:      "1000000000000000000",
	}
)

// ChainConfig is the blockchain config which determines the blockchain settings.
type ChainConfig struct {
	ChainID uint64 // chainId identifies the current chain and is used for replay protection

	// Quorum of validators whose coordination transactions every block carries.
	MinValidators int
	// Validators is the genesis validator set, the local node included.
	Validators []common.Address
	// ValidatorContract receives the randomHash and randomSeed transactions.
	ValidatorContract common.Address

	// FaucetAmount is the decimal amount credited by the faucet path.
	FaucetAmount string

	Genesis GenesisConfig
}

// GenesisConfig describes the genesis block and the accounts seeded into an
// empty store.
type GenesisConfig struct {
	Timestamp uint64
	Alloc     []GenesisAccount
}

// GenesisAccount is one bootstrap account. Balance is a decimal string so it
// survives TOML and deep copies without precision loss.
type GenesisAccount struct {
	Address common.Address
	Balance string
}

// String implements the fmt.Stringer interface.
func (cc *ChainConfig) String() string {
	return fmt.Sprintf("{ChainID: %d, MinValidators: %d, Validators: %d, Genesis accounts: %d}",
		cc.ChainID,
		cc.MinValidators,
		len(cc.Validators),
		len(cc.Genesis.Alloc),
	)
}

// Validate checks the settings that the engine cannot run without.
func (cc *ChainConfig) Validate() error {
	if cc.MinValidators <= 0 {
		return fmt.Errorf("invalid MinValidators %d", cc.MinValidators)
	}
	if len(cc.Validators) != 0 && len(cc.Validators) < cc.MinValidators+1 {
		return fmt.Errorf("need at least %d validators for a quorum of %d, have %d",
			cc.MinValidators+1, cc.MinValidators, len(cc.Validators))
	}
	return nil
}

// Copy returns a deep copy of the configuration.
func (cc *ChainConfig) Copy() *ChainConfig {
	return deepcopy.Copy(cc).(*ChainConfig)
}

// MinerConfig bounds the block builder.
type MinerConfig struct {
	// RetryInterval is how often the coordination pool is rescanned while
	// slots are still missing.
	RetryInterval time.Duration
	// BuildTimeout caps the wait for coordination transactions. Zero means
	// the caller's context is the only bound.
	BuildTimeout time.Duration
}

// DefaultMinerConfig contains default settings for the block builder.
var DefaultMinerConfig = MinerConfig{
	RetryInterval: 100 * time.Millisecond,
	BuildTimeout:  30 * time.Second,
}
