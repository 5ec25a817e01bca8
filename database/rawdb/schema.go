// Package rawdb contains a collection of low level database accessors.
package rawdb

import (
	"encoding/binary"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/logger"
)

var log = logger.NewLogger("[rawdb]")

// The fields below define the low level database schema prefixing.
var (
	// databaseVersionKey tracks the current database version.
	databaseVersionKey = []byte("DatabaseVersion")

	// headBlockKey tracks the latest known full block's hash.
	headBlockKey = []byte("LastBlock")

	blockPrefix      = []byte("b") // blockPrefix + hash -> snappy(rlp(block))
	headerHashSuffix = []byte("n") // headerPrefix + num (uint64 big endian) + headerHashSuffix -> hash
	headerPrefix     = []byte("h")
	configPrefix     = []byte("entropy-config-") // config prefix for the db

	// NativeAccountNamespace holds address -> balance ++ nonce records.
	NativeAccountNamespace = []byte("native-account-")
)

// DatabaseVersion is the version of the schema written by this node.
const DatabaseVersion = 1

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// blockKey = blockPrefix + hash
func blockKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockPrefix...), hash.Bytes()...)
}

// headerHashKey = headerPrefix + num (uint64 big endian) + headerHashSuffix
func headerHashKey(number uint64) []byte {
	return append(append(append([]byte{}, headerPrefix...), encodeBlockNumber(number)...), headerHashSuffix...)
}

// configKey = configPrefix + hash
func configKey(hash common.Hash) []byte {
	return append(append([]byte{}, configPrefix...), hash.Bytes()...)
}

// namespaceKey = namespace + key
func namespaceKey(namespace, key []byte) []byte {
	return append(append([]byte{}, namespace...), key...)
}
