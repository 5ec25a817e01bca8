// Package database defines the key-value store the node persists into.
//
// The product store is leveldb, tests run against memorydb. Every call
// carries a short tag naming the record kind, used only for debug logging.
package database

import "errors"

// Code using batches should try to add this much data to the batch.
// The value was determined empirically.
const IdealBatchSize = 100 * 1024

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("not found")

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte, from string) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	Get(key []byte, from string) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete methods of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte, from string) error

	// Delete removes the key from the key-value data store.
	Delete(key []byte, from string) error
}

// Iterator iterates over a database's key/value pairs in ascending key order.
//
// The iterator must be released after use, by calling Release method.
type Iterator interface {
	// Next moves the iterator to the next key/value pair. It returns whether the
	// iterator is exhausted.
	Next() bool

	// Error returns any accumulated error.
	Error() error

	// Key returns the key of the current key/value pair, or nil if done. The caller
	// should not modify the contents of the returned slice, and its contents may
	// change on the next call to Next.
	Key() []byte

	// Value returns the value of the current key/value pair, or nil if done. The
	// caller should not modify the contents of the returned slice, and its contents
	// may change on the next call to Next.
	Value() []byte

	// Release releases associated resources.
	Release()
}

// Iteratee wraps the NewIterator methods of a backing data store.
type Iteratee interface {
	// NewIterator creates a binary-alphabetical iterator over the subset
	// of database content with a particular key prefix.
	NewIterator(prefix []byte) Iterator
}

// Batch is a write-only database that commits changes to its host database
// when Write is called. Batch cannot be used concurrently.
type Batch interface {
	KeyValueWriter

	ValueSize() int // amount of data in the batch
	Write() error
	Reset()
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	// NewBatch creates a write-only database that buffers changes to its host db
	// until a final write is called.
	NewBatch() Batch
}

// KeyValueStore contains all the methods required to allow handling different
// key-value data stores backing the high level database. All methods are safe
// for concurrent use.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Iteratee
	Batcher

	Close() error
}
