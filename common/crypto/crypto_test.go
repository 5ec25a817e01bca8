package crypto

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivHex = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"

func TestKeccak256Hash(t *testing.T) {
	// keccak256("") is a well known constant
	h := Keccak256Hash(nil)
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", h.Hex())
}

func TestPubkeyToAddress(t *testing.T) {
	key, err := HexToECDSA(testPrivHex)
	require.NoError(t, err)
	addr := PubkeyToAddress(key.PublicKey)
	assert.Equal(t, "0x970e8128ab834e8eac17ab8e3812f010678cf791", addr.Hex())
}

func TestSignAndRecover(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	msg := Keccak256([]byte("foo"))
	sig, err := Sign(msg, key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	assert.True(t, ValidateSignatureValues(sig[64], r, s))

	addr, err := SigToAddress(msg, sig)
	require.NoError(t, err)
	assert.Equal(t, PubkeyToAddress(key.PublicKey), addr)

	// A tampered digest recovers some other key.
	other, err := SigToAddress(Keccak256([]byte("bar")), sig)
	if err == nil {
		assert.NotEqual(t, addr, other)
	}
}

func TestSigToPubRejectsMalformed(t *testing.T) {
	msg := Keccak256([]byte("foo"))
	_, err := SigToPub(msg, make([]byte, 10))
	assert.Equal(t, errInvalidSigLength, err)

	sig := make([]byte, SignatureLength)
	sig[64] = 5
	_, err = SigToPub(msg, sig)
	assert.Equal(t, errInvalidRecoveryID, err)

	_, err = SigToPub(msg[:10], make([]byte, SignatureLength))
	assert.Equal(t, errInvalidHashLength, err)
}

func TestToECDSARejectsInvalid(t *testing.T) {
	_, err := ToECDSA(make([]byte, 31))
	assert.Error(t, err)
	_, err = ToECDSA(make([]byte, 32))
	assert.Error(t, err)

	key, err := HexToECDSA(testPrivHex)
	require.NoError(t, err)
	assert.Equal(t, testPrivHex, hex.EncodeToString(FromECDSA(key)))
}
