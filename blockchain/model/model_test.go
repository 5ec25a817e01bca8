package model

import (
	"math/big"
	"testing"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey, _  = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testAddr    = crypto.PubkeyToAddress(testKey.PublicKey)
	testChainID = uint64(1337)
)

func TestTransactionSigning(t *testing.T) {
	to := common.HexToAddress("0x0000000000000000000000000000000000000042")
	tx := NewTransaction(3, to, big.NewInt(30), 21000, big.NewInt(2), []byte{0xca, 0xfe})
	assert.False(t, tx.Verified())

	signed, err := SignTx(tx, testChainID, testKey)
	require.NoError(t, err)
	assert.True(t, signed.Verified())
	assert.Equal(t, testAddr, signed.From())
	assert.Equal(t, uint64(3), signed.Nonce())
	assert.Equal(t, to, signed.To())
	assert.Equal(t, big.NewInt(42000), signed.Fee())
	assert.Equal(t, big.NewInt(42030), signed.Cost())
	assert.NotEqual(t, tx.Hash(), signed.Hash())

	// accessors hand out copies
	signed.Value().SetInt64(1000)
	assert.Equal(t, big.NewInt(30), signed.Value())
}

func TestTransactionDecode(t *testing.T) {
	tx := MustSignTx(NewTransaction(0, common.Address{1}, big.NewInt(5), 21000, big.NewInt(1), nil), testChainID, testKey)
	enc, err := tx.Encode()
	require.NoError(t, err)

	dec, err := DecodeTransaction(enc)
	require.NoError(t, err)
	assert.True(t, dec.Verified())
	assert.Equal(t, tx.Hash(), dec.Hash())
	assert.Equal(t, testAddr, dec.From())

	// Corrupt the amount: the signature no longer matches the sender.
	tampered := MustSignTx(NewTransaction(0, common.Address{1}, big.NewInt(6), 21000, big.NewInt(1), nil), testChainID, testKey)
	tampered.data.Sig = tx.data.Sig
	enc, err = tampered.Encode()
	require.NoError(t, err)
	dec, err = DecodeTransaction(enc)
	require.NoError(t, err)
	if dec.Verified() {
		assert.NotEqual(t, testAddr, dec.From())
	}

	// Unsigned transactions never verify.
	enc, err = NewTransaction(0, common.Address{1}, big.NewInt(5), 21000, big.NewInt(1), nil).Encode()
	require.NoError(t, err)
	dec, err = DecodeTransaction(enc)
	require.NoError(t, err)
	assert.False(t, dec.Verified())
}

func TestBlockLifecycle(t *testing.T) {
	parent := common.HexToHash("0x01")
	block := NewBlock(parent, 100, 7)
	assert.Equal(t, parent, block.ParentHash())
	assert.Equal(t, uint64(7), block.Height())

	empty := block.Hash()
	tx := MustSignTx(NewTransaction(0, common.Address{1}, big.NewInt(5), 0, nil, nil), testChainID, testKey)
	require.NoError(t, block.AppendTx(tx))
	withTx := block.Hash()
	assert.NotEqual(t, empty, withTx)

	vtx := MustSignTx(NewTransaction(1, common.Address{2}, nil, 0, nil, []byte{1}), testChainID, testKey)
	require.NoError(t, block.AppendValidatorTx(vtx))
	assert.NotEqual(t, withTx, block.Hash())

	sig, err := crypto.Sign(block.Hash().Bytes(), testKey)
	require.NoError(t, err)
	require.NoError(t, block.SetSignature(sig))
	assert.True(t, block.Finalized())
	assert.Equal(t, ErrBlockFinalized, block.AppendTx(tx))
	assert.Equal(t, ErrBlockFinalized, block.AppendValidatorTx(vtx))
	assert.Equal(t, ErrBlockFinalized, block.SetSignature(sig))

	signer, err := block.Signer()
	require.NoError(t, err)
	assert.Equal(t, testAddr, signer)
}

func TestBlockEncoding(t *testing.T) {
	block := NewBlock(common.HexToHash("0xff"), 12345, 1)
	tx := MustSignTx(NewTransaction(0, common.Address{1}, big.NewInt(5), 21000, big.NewInt(1), nil), testChainID, testKey)
	require.NoError(t, block.AppendTx(tx))
	sig, err := crypto.Sign(block.Hash().Bytes(), testKey)
	require.NoError(t, err)
	require.NoError(t, block.SetSignature(sig))

	enc, err := EncodeBlock(block)
	require.NoError(t, err)
	dec, err := DecodeBlock(enc)
	require.NoError(t, err)

	assert.Equal(t, block.Hash(), dec.Hash())
	assert.Equal(t, block.Header(), dec.Header())
	require.Len(t, dec.Transactions(), 1)
	assert.True(t, dec.Transactions()[0].Verified())
	assert.Equal(t, testAddr, dec.Transactions()[0].From())
	assert.True(t, dec.Finalized())
	assert.Empty(t, dec.ValidatorTransactions())
}
