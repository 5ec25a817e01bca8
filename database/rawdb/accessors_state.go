package rawdb

import (
	"fmt"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/database"
)

// Entry is one record of a namespace, with the namespace prefix stripped
// from its key.
type Entry struct {
	Key   []byte
	Value []byte
}

// ReadNamespace returns every record stored under namespace in ascending
// key order.
func ReadNamespace(db database.Iteratee, namespace []byte) ([]Entry, error) {
	it := db.NewIterator(namespace)
	defer it.Release()

	var entries []Entry
	for it.Next() {
		entries = append(entries, Entry{
			Key:   common.CopyBytes(it.Key()[len(namespace):]),
			Value: common.CopyBytes(it.Value()),
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	log.Debugf("DB ReadNamespace. namespace:%s, entries:%d", namespace, len(entries))
	return entries, nil
}

// WriteNamespace stores entries under namespace in a single batch.
func WriteNamespace(db database.Batcher, namespace []byte, entries []Entry) error {
	batch := db.NewBatch()
	for _, entry := range entries {
		if err := batch.Put(namespaceKey(namespace, entry.Key), entry.Value, "namespace"); err != nil {
			return err
		}
		if batch.ValueSize() >= database.IdealBatchSize {
			if err := batch.Write(); err != nil {
				return err
			}
			batch.Reset()
		}
	}
	if err := batch.Write(); err != nil {
		return err
	}
	log.Debugf("DB WriteNamespace. namespace:%s, entries:%d", namespace, len(entries))
	return nil
}

// HasNamespace reports whether at least one record lives under namespace.
func HasNamespace(db database.Iteratee, namespace []byte) bool {
	it := db.NewIterator(namespace)
	defer it.Release()
	return it.Next()
}

// ReadNativeAccounts returns the raw account records keyed by address.
func ReadNativeAccounts(db database.Iteratee) (map[common.Address][]byte, error) {
	entries, err := ReadNamespace(db, NativeAccountNamespace)
	if err != nil {
		return nil, err
	}
	accounts := make(map[common.Address][]byte, len(entries))
	for _, entry := range entries {
		if len(entry.Key) != common.AddressLength {
			return nil, fmt.Errorf("invalid account key length %d", len(entry.Key))
		}
		accounts[common.BytesToAddress(entry.Key)] = entry.Value
	}
	return accounts, nil
}

// WriteNativeAccounts stores the raw account records keyed by address.
func WriteNativeAccounts(db database.Batcher, accounts map[common.Address][]byte) error {
	entries := make([]Entry, 0, len(accounts))
	for addr, enc := range accounts {
		entries = append(entries, Entry{Key: common.CopyBytes(addr.Bytes()), Value: enc})
	}
	return WriteNamespace(db, NativeAccountNamespace, entries)
}
