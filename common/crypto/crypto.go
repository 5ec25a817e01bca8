package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
	"github.com/entropyio/go-statecore/common"
	"golang.org/x/crypto/sha3"
)

// SignatureLength indicates the byte length required to carry a signature with recovery id.
const SignatureLength = 64 + 1 // 64 bytes ECDSA signature + 1 byte recovery id

// DigestLength sets the signature digest exact length
const DigestLength = 32

var (
	secp256k1N     = btcec.S256().N
	secp256k1halfN = new(big.Int).Div(secp256k1N, big.NewInt(2))
)

var (
	errInvalidPubkey     = errors.New("invalid secp256k1 public key")
	errInvalidSigLength  = errors.New("invalid signature length")
	errInvalidHashLength = errors.New("hash is required to be exactly 32 bytes")
	errInvalidRecoveryID = errors.New("invalid signature recovery id")
)

// Keccak256 calculates and returns the Keccak256 hash of the input data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates and returns the Keccak256 hash of the input data,
// converting it to an internal Hash data structure.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}

// GenerateKey creates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}
	return key.ToECDSA(), nil
}

// ToECDSA creates a private key with the given D value.
func ToECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("invalid length, need 256 bits")
	}
	k := new(big.Int).SetBytes(d)
	if k.Sign() <= 0 || k.Cmp(secp256k1N) >= 0 {
		return nil, fmt.Errorf("invalid private key, >=N or zero")
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), d)
	return priv.ToECDSA(), nil
}

// HexToECDSA parses a secp256k1 private key.
func HexToECDSA(hexkey string) (*ecdsa.PrivateKey, error) {
	b, err := hex.DecodeString(hexkey)
	if err != nil {
		return nil, errors.New("invalid hex data for private key")
	}
	return ToECDSA(b)
}

// FromECDSA exports a private key into a binary dump.
func FromECDSA(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	b := priv.D.Bytes()
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// PubkeyToAddress derives the account address from a public key: the last
// 20 bytes of the keccak hash of the uncompressed point without its prefix.
func PubkeyToAddress(p ecdsa.PublicKey) common.Address {
	pub := (*btcec.PublicKey)(&p).SerializeUncompressed()
	return common.BytesToAddress(Keccak256(pub[1:])[12:])
}

// Sign calculates an ECDSA signature.
//
// This function is susceptible to chosen plaintext attacks that can leak
// information about the private key that is used for signing. Callers must
// be aware that the given hash cannot be chosen by an adversary. Common
// solution is to hash any input before calculating the signature.
//
// The produced signature is in the [R || S || V] format where V is 0 or 1.
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(hash) != DigestLength {
		return nil, errInvalidHashLength
	}
	if prv.Curve != btcec.S256() {
		return nil, fmt.Errorf("private key curve is not secp256k1")
	}
	sig, err := btcec.SignCompact(btcec.S256(), (*btcec.PrivateKey)(prv), hash, false)
	if err != nil {
		return nil, err
	}
	// Convert to the [R || S || V] layout.
	v := sig[0] - 27
	copy(sig, sig[1:])
	sig[64] = v
	return sig, nil
}

// SigToPub returns the public key that created the given signature.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, errInvalidSigLength
	}
	if len(hash) != DigestLength {
		return nil, errInvalidHashLength
	}
	if sig[64] > 1 {
		return nil, errInvalidRecoveryID
	}
	// Convert to btcec input format with 'recovery id' v at the beginning.
	btcsig := make([]byte, SignatureLength)
	btcsig[0] = sig[64] + 27
	copy(btcsig[1:], sig)

	pub, _, err := btcec.RecoverCompact(btcec.S256(), btcsig, hash)
	if err != nil {
		return nil, err
	}
	if pub == nil {
		return nil, errInvalidPubkey
	}
	return pub.ToECDSA(), nil
}

// SigToAddress recovers the address of the key that produced sig over hash.
func SigToAddress(hash, sig []byte) (common.Address, error) {
	pub, err := SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return PubkeyToAddress(*pub), nil
}

// ValidateSignatureValues verifies whether the signature values are valid with
// the given chain rules. Only low-s signatures are accepted.
func ValidateSignatureValues(v byte, r, s *big.Int) bool {
	if r.Cmp(common.Big1) < 0 || s.Cmp(common.Big1) < 0 {
		return false
	}
	return r.Cmp(secp256k1N) < 0 && s.Cmp(secp256k1halfN) <= 0 && (v == 0 || v == 1)
}
