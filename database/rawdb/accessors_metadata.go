package rawdb

import (
	"encoding/json"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/database"
	"github.com/ethereum/go-ethereum/rlp"
)

// ReadDatabaseVersion retrieves the version number of the database.
func ReadDatabaseVersion(db database.KeyValueReader) *uint64 {
	var version uint64

	enc, _ := db.Get(databaseVersionKey, "dbVersion")
	if len(enc) == 0 {
		return nil
	}
	if err := rlp.DecodeBytes(enc, &version); err != nil {
		return nil
	}

	return &version
}

// WriteDatabaseVersion stores the version number of the database
func WriteDatabaseVersion(db database.KeyValueWriter, version uint64) {
	enc, err := rlp.EncodeToBytes(version)
	if err != nil {
		log.Critical("Failed to encode database version", "err", err)
	}
	if err = db.Put(databaseVersionKey, enc, "dbVersion"); err != nil {
		log.Critical("Failed to store the database version", "err", err)
	}
}

// ReadChainConfig retrieves the chain settings stored next to the given
// genesis hash.
func ReadChainConfig(db database.KeyValueReader, hash common.Hash) *config.ChainConfig {
	data, _ := db.Get(configKey(hash), "config")
	if len(data) == 0 {
		return nil
	}
	var configObj config.ChainConfig
	if err := json.Unmarshal(data, &configObj); err != nil {
		log.Error("Invalid chain config JSON", "hash", hash, "err", err)
		return nil
	}
	return &configObj
}

// WriteChainConfig writes the chain config settings to the database.
func WriteChainConfig(db database.KeyValueWriter, hash common.Hash, cfg *config.ChainConfig) {
	if cfg == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		log.Critical("Failed to JSON encode chain config", "err", err)
	}
	if err := db.Put(configKey(hash), data, "config"); err != nil {
		log.Critical("Failed to store chain config", "err", err)
	}
}
