package blockchain

import (
	"fmt"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/database"
	"github.com/entropyio/go-statecore/database/rawdb"
)

// GenesisMismatchError is raised when trying to overwrite an existing
// genesis block with an incompatible one.
type GenesisMismatchError struct {
	Stored, New common.Hash
}

func (e *GenesisMismatchError) Error() string {
	return fmt.Sprintf("database contains incompatible genesis (have %x, new %x)", e.Stored, e.New)
}

// GenesisBlock returns the unsigned height 0 block described by cfg.
func GenesisBlock(cfg *config.ChainConfig) *model.Block {
	return model.NewBlock(common.Hash{}, cfg.Genesis.Timestamp, 0)
}

// SetupGenesisBlock writes the genesis block of cfg into an empty db, or
// checks that the stored one matches it. The genesis accounts live in the
// ledger and are seeded by state.Load.
func SetupGenesisBlock(db database.KeyValueStore, cfg *config.ChainConfig) (*model.Block, error) {
	genesis := GenesisBlock(cfg)

	stored := rawdb.ReadCanonicalHash(db, 0)
	if (stored == common.Hash{}) {
		log.Infof("Writing genesis block %x", genesis.Hash())
		if err := rawdb.WriteCanonicalBlock(db, genesis); err != nil {
			return nil, err
		}
		rawdb.WriteChainConfig(db, genesis.Hash(), cfg)
		rawdb.WriteDatabaseVersion(db, rawdb.DatabaseVersion)
		return genesis, nil
	}
	if hash := genesis.Hash(); hash != stored {
		return nil, &GenesisMismatchError{stored, hash}
	}
	if storedConfig := rawdb.ReadChainConfig(db, stored); storedConfig == nil {
		log.Warning("Found genesis block without chain config")
		rawdb.WriteChainConfig(db, stored, cfg)
	} else if storedConfig.ChainID != cfg.ChainID {
		return nil, fmt.Errorf("stored chain id %d, configured %d", storedConfig.ChainID, cfg.ChainID)
	}
	return genesis, nil
}
