package rawdb

import (
	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/database"
	"github.com/golang/snappy"
)

// ReadCanonicalHash retrieves the hash assigned to a canonical block number.
func ReadCanonicalHash(db database.KeyValueReader, number uint64) common.Hash {
	data, _ := db.Get(headerHashKey(number), "canonicalHash")
	if len(data) == 0 {
		return common.Hash{}
	}
	hash := common.BytesToHash(data)

	log.Debugf("DB ReadCanonicalHash. number:%d, hash:%x", number, hash)
	return hash
}

// WriteCanonicalHash stores the hash assigned to a canonical block number.
func WriteCanonicalHash(db database.KeyValueWriter, hash common.Hash, number uint64) {
	if err := db.Put(headerHashKey(number), hash.Bytes(), "canonicalHash"); err != nil {
		log.Critical("Failed to store number to hash mapping", "err", err)
	}

	log.Debugf("DB WriteCanonicalHash. key: h......n, number:%d, hash:%x", number, hash)
}

// ReadHeadBlockHash retrieves the hash of the current canonical head block.
func ReadHeadBlockHash(db database.KeyValueReader) common.Hash {
	data, _ := db.Get(headBlockKey, "lastBlockHash")
	if len(data) == 0 {
		return common.Hash{}
	}
	hash := common.BytesToHash(data)

	log.Debugf("DB ReadHeadBlockHash. key:LastBlock, hash:%x", hash)
	return hash
}

// WriteHeadBlockHash stores the head block's hash.
func WriteHeadBlockHash(db database.KeyValueWriter, hash common.Hash) {
	if err := db.Put(headBlockKey, hash.Bytes(), "lastBlockHash"); err != nil {
		log.Critical("Failed to store last block's hash", "err", err)
	}

	log.Debugf("DB WriteHeadBlockHash. key:LastBlock, hash:%x", hash)
}

// HasBlock verifies the existence of a block corresponding to the hash.
func HasBlock(db database.KeyValueReader, hash common.Hash) bool {
	has, err := db.Has(blockKey(hash), "hasBlock")
	return err == nil && has
}

// ReadBlock retrieves an entire block corresponding to the hash. Blocks are
// stored snappy compressed.
func ReadBlock(db database.KeyValueReader, hash common.Hash) *model.Block {
	data, _ := db.Get(blockKey(hash), "block")
	if len(data) == 0 {
		return nil
	}
	enc, err := snappy.Decode(nil, data)
	if err != nil {
		log.Error("Invalid block snappy data", "hash", hash, "err", err)
		return nil
	}
	block, err := model.DecodeBlock(enc)
	if err != nil {
		log.Error("Invalid block RLP", "hash", hash, "err", err)
		return nil
	}

	log.Debugf("DB ReadBlock. hash:%x, height:%d", hash, block.Height())
	return block
}

// WriteBlock serializes a block into the database.
func WriteBlock(db database.KeyValueWriter, block *model.Block) {
	enc, err := model.EncodeBlock(block)
	if err != nil {
		log.Critical("Failed to RLP encode block", "err", err)
		return
	}
	if err := db.Put(blockKey(block.Hash()), snappy.Encode(nil, enc), "block"); err != nil {
		log.Critical("Failed to store block", "err", err)
	}

	log.Debugf("DB WriteBlock. hash:%x, height:%d, size:%d", block.Hash(), block.Height(), len(enc))
}

// WriteCanonicalBlock stores block, indexes it by height and moves the head
// marker to it in one batch.
func WriteCanonicalBlock(db database.Batcher, block *model.Block) error {
	batch := db.NewBatch()
	WriteBlock(batch, block)
	WriteCanonicalHash(batch, block.Hash(), block.Height())
	WriteHeadBlockHash(batch, block.Hash())
	return batch.Write()
}
