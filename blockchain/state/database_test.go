package state

import (
	"testing"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/database/memorydb"
	"github.com/entropyio/go-statecore/database/rawdb"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRecordLayout(t *testing.T) {
	acc := &Account{Balance: uint256.NewInt(0x0102), Nonce: 0x0a0b0c0d}
	enc := EncodeAccount(acc)
	require.Len(t, enc, AccountRecordLength)
	assert.Equal(t, byte(0x01), enc[30])
	assert.Equal(t, byte(0x02), enc[31])
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c, 0x0d}, enc[32:])

	dec, err := DecodeAccount(enc)
	require.NoError(t, err)
	assert.Equal(t, acc, dec)

	_, err = DecodeAccount(enc[:35])
	assert.Error(t, err)
}

func TestLoadSeedsGenesisOnce(t *testing.T) {
	db := memorydb.New()
	alloc := config.DefaultGenesisAlloc

	s := New(testChainID)
	require.NoError(t, s.Load(db, alloc))
	for _, ga := range alloc {
		assert.Equal(t, ga.Balance, s.GetBalance(ga.Address).ToBig().String())
	}
	assert.Equal(t, len(alloc), db.Len())

	// Spend from the first genesis account and persist.
	first := alloc[0].Address
	require.NoError(t, s.Update(func(w *Writer) error {
		return w.ApplyTransfer(first, recipient, uint256.NewInt(5), uint256.NewInt(0))
	}))
	require.NoError(t, s.Save(db))

	// A second load must not credit the genesis accounts again.
	reloaded := New(testChainID)
	require.NoError(t, reloaded.Load(db, alloc))
	assert.Equal(t, s.Accounts(), reloaded.Accounts())
	assert.Equal(t, uint32(1), reloaded.GetNonce(first))
	assert.Equal(t, uint64(5), reloaded.GetBalance(recipient).Uint64())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := memorydb.New()
	s := New(testChainID)
	for i := 1; i <= 20; i++ {
		addr := common.BytesToAddress([]byte{byte(i)})
		s.accounts[addr] = &Account{
			Balance: new(uint256.Int).Lsh(uint256.NewInt(uint64(i)), uint(8*i)),
			Nonce:   uint32(i * 1000),
		}
	}
	require.NoError(t, s.Save(db))

	records, err := rawdb.ReadNativeAccounts(db)
	require.NoError(t, err)
	assert.Len(t, records, 20)

	fresh := New(testChainID)
	require.NoError(t, fresh.Load(db, config.DefaultGenesisAlloc))
	assert.Equal(t, s.Accounts(), fresh.Accounts())
}

func TestLoadEmptyWithoutAlloc(t *testing.T) {
	db := memorydb.New()
	s := New(testChainID)
	require.NoError(t, s.Load(db, nil))
	assert.Empty(t, s.Accounts())
	assert.Equal(t, 0, db.Len())
}

func TestLoadRejectsBadGenesis(t *testing.T) {
	s := New(testChainID)
	err := s.Load(memorydb.New(), []config.GenesisAccount{{Address: recipient, Balance: "many"}})
	assert.Error(t, err)
}

func TestDump(t *testing.T) {
	s := New(testChainID)
	seed(s, common.HexToAddress("0x02"), 20, 2)
	seed(s, common.HexToAddress("0x01"), 10, 1)

	dump := s.RawDump()
	require.Len(t, dump.Accounts, 2)
	assert.Equal(t, common.HexToAddress("0x01").Hex(), dump.Accounts[0].Address)
	assert.Equal(t, "10", dump.Accounts[0].Balance)
	assert.Equal(t, uint32(2), dump.Accounts[1].Nonce)
	assert.Contains(t, string(s.Dump()), `"balance": "20"`)
}
