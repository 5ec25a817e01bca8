package leveldb

import (
	"testing"

	"github.com/entropyio/go-statecore/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLDB(t *testing.T) *Database {
	db, err := NewMemory()
	require.NoError(t, err)
	return db
}

func TestLDB_PutGet(t *testing.T) {
	db := newTestLDB(t)
	defer db.Close()

	require.NoError(t, db.Put([]byte("12345"), []byte("12345"), "test"))
	data, err := db.Get([]byte("12345"), "test")
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), data)

	require.NoError(t, db.Put([]byte("12345"), []byte("54321"), "test"))
	data, err = db.Get([]byte("12345"), "test")
	require.NoError(t, err)
	assert.Equal(t, []byte("54321"), data)

	require.NoError(t, db.Delete([]byte("12345"), "test"))
	_, err = db.Get([]byte("12345"), "test")
	assert.Equal(t, database.ErrNotFound, err)
}

func TestLDB_BatchAndIterator(t *testing.T) {
	db := newTestLDB(t)
	defer db.Close()

	batch := db.NewBatch()
	for _, k := range []string{"p-c", "p-a", "q-a", "p-b"} {
		require.NoError(t, batch.Put([]byte(k), []byte("v"+k), "test"))
	}
	require.NoError(t, batch.Write())

	it := db.NewIterator([]byte("p-"))
	defer it.Release()

	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"p-a", "p-b", "p-c"}, keys)
	assert.Equal(t, []string{"vp-a", "vp-b", "vp-c"}, values)
}

func TestLDB_OpenFile(t *testing.T) {
	dir := t.TempDir()
	db, err := New(dir, 0, 0, "test", false)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v"), "test"))
	require.NoError(t, db.Close())

	db, err = New(dir, 0, 0, "test", true)
	require.NoError(t, err)
	defer db.Close()
	ok, err := db.Has([]byte("k"), "test")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, dir, db.Path())
}
