package config

import (
	"os"
	"path/filepath"

	"github.com/mohae/deepcopy"
)

const ClientIdentifier = "statecore"

// NodeConfig holds the process level settings.
type NodeConfig struct {
	DataDir         string
	DatabaseCache   int // megabytes handed to leveldb
	DatabaseHandles int
	BlockCacheSize  int
	LogLevel        string

	// ValidatorKey is the hex encoded secp256k1 key the node signs blocks
	// with. Nodes without one validate but never produce.
	ValidatorKey string `toml:",omitempty"`
}

// Config is the top level TOML document.
type Config struct {
	Node  NodeConfig
	Chain ChainConfig
	Miner MinerConfig
}

// DefaultNodeConfig contains reasonable default settings.
var DefaultNodeConfig = NodeConfig{
	DataDir:         DefaultDataDir(),
	DatabaseCache:   16,
	DatabaseHandles: 16,
	BlockCacheSize:  256,
	LogLevel:        "info",
}

// DefaultConfig returns a fresh copy of every default, safe to mutate.
func DefaultConfig() *Config {
	cfg := &Config{
		Node:  DefaultNodeConfig,
		Chain: *MainChainConfig,
		Miner: DefaultMinerConfig,
	}
	return deepcopy.Copy(cfg).(*Config)
}

// DefaultDataDir is the default data directory to use for the databases and
// other persistence requirements.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".statecore")
}

// ResolvePath resolves path in the instance directory.
func (c *NodeConfig) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, path)
}
