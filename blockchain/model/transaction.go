package model

import (
	"crypto/ecdsa"
	"errors"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrInvalidSig     = errors.New("invalid transaction v, r, s values")
	ErrInvalidChainId = errors.New("invalid chain id for signer")
)

// Transaction is an immutable value transfer. The sender is recovered once,
// when the transaction is signed or decoded; Verified reports whether that
// recovery succeeded.
type Transaction struct {
	data txdata

	// caches
	hash atomic.Value

	from     common.Address
	verified bool
}

type txdata struct {
	AccountNonce uint64
	Price        *big.Int
	GasLimit     uint64
	Recipient    common.Address
	Amount       *big.Int
	Payload      []byte
	ChainID      uint64

	// Signature values in [R || S || V] form.
	Sig []byte
}

// sigdata is the signed portion of a transaction.
type sigdata struct {
	AccountNonce uint64
	Price        *big.Int
	GasLimit     uint64
	Recipient    common.Address
	Amount       *big.Int
	Payload      []byte
	ChainID      uint64
}

// NewTransaction creates an unsigned transaction.
func NewTransaction(nonce uint64, to common.Address, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *Transaction {
	d := txdata{
		AccountNonce: nonce,
		Recipient:    to,
		Payload:      common.CopyBytes(data),
		Amount:       new(big.Int),
		GasLimit:     gasLimit,
		Price:        new(big.Int),
	}
	if amount != nil {
		d.Amount.Set(amount)
	}
	if gasPrice != nil {
		d.Price.Set(gasPrice)
	}
	return &Transaction{data: d}
}

// SignTx signs the transaction for the given chain and returns a verified copy.
func SignTx(tx *Transaction, chainID uint64, prv *ecdsa.PrivateKey) (*Transaction, error) {
	cpy := tx.data
	cpy.Payload = common.CopyBytes(tx.data.Payload)
	cpy.Amount = new(big.Int).Set(tx.data.Amount)
	cpy.Price = new(big.Int).Set(tx.data.Price)
	cpy.ChainID = chainID
	cpy.Sig = nil

	signed := &Transaction{data: cpy}
	sig, err := crypto.Sign(signed.SigHash().Bytes(), prv)
	if err != nil {
		return nil, err
	}
	signed.data.Sig = sig
	signed.recoverSender()
	if !signed.verified {
		return nil, ErrInvalidSig
	}
	return signed, nil
}

// MustSignTx is SignTx for tests and fixtures, panicking on failure.
func MustSignTx(tx *Transaction, chainID uint64, prv *ecdsa.PrivateKey) *Transaction {
	signed, err := SignTx(tx, chainID, prv)
	if err != nil {
		panic(err)
	}
	return signed
}

// DecodeTransaction decodes an RLP encoded transaction and recovers its sender.
// A well formed transaction with a bad signature decodes fine but reports
// Verified() == false.
func DecodeTransaction(b []byte) (*Transaction, error) {
	tx := new(Transaction)
	if err := rlp.DecodeBytes(b, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (tx *Transaction) recoverSender() {
	tx.verified = false
	if len(tx.data.Sig) != crypto.SignatureLength {
		return
	}
	r := new(big.Int).SetBytes(tx.data.Sig[:32])
	s := new(big.Int).SetBytes(tx.data.Sig[32:64])
	if !crypto.ValidateSignatureValues(tx.data.Sig[64], r, s) {
		return
	}
	from, err := crypto.SigToAddress(tx.SigHash().Bytes(), tx.data.Sig)
	if err != nil {
		return
	}
	tx.from, tx.verified = from, true
}

// EncodeRLP implements rlp.Encoder
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &tx.data)
}

// DecodeRLP implements rlp.Decoder
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	if err := s.Decode(&tx.data); err != nil {
		return err
	}
	tx.recoverSender()
	return nil
}

// Encode returns the canonical RLP encoding of the transaction.
func (tx *Transaction) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

func (tx *Transaction) Data() []byte       { return common.CopyBytes(tx.data.Payload) }
func (tx *Transaction) Gas() uint64        { return tx.data.GasLimit }
func (tx *Transaction) GasPrice() *big.Int { return new(big.Int).Set(tx.data.Price) }
func (tx *Transaction) Value() *big.Int    { return new(big.Int).Set(tx.data.Amount) }
func (tx *Transaction) Nonce() uint64      { return tx.data.AccountNonce }
func (tx *Transaction) To() common.Address { return tx.data.Recipient }
func (tx *Transaction) ChainID() uint64    { return tx.data.ChainID }
func (tx *Transaction) From() common.Address {
	return tx.from
}

// Verified reports whether the signature recovered to a sender.
func (tx *Transaction) Verified() bool { return tx.verified }

// Fee returns gasPrice * gas.
func (tx *Transaction) Fee() *big.Int {
	return new(big.Int).Mul(tx.data.Price, new(big.Int).SetUint64(tx.data.GasLimit))
}

// Cost returns value + gasPrice * gas.
func (tx *Transaction) Cost() *big.Int {
	return new(big.Int).Add(tx.data.Amount, tx.Fee())
}

// Hash hashes the RLP encoding of tx, signature included.
// It uniquely identifies the transaction.
func (tx *Transaction) Hash() common.Hash {
	if hash := tx.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	v := rlpHash(&tx.data)
	tx.hash.Store(v)
	return v
}

// SigHash returns the hash to be signed by the sender.
func (tx *Transaction) SigHash() common.Hash {
	return rlpHash(&sigdata{
		AccountNonce: tx.data.AccountNonce,
		Price:        tx.data.Price,
		GasLimit:     tx.data.GasLimit,
		Recipient:    tx.data.Recipient,
		Amount:       tx.data.Amount,
		Payload:      tx.data.Payload,
		ChainID:      tx.data.ChainID,
	})
}

// Transactions is a Transaction slice type for basic sorting.
type Transactions []*Transaction

// Len returns the length of s.
func (s Transactions) Len() int { return len(s) }

// Hashes returns the hashes of every transaction, in order.
func (s Transactions) Hashes() []common.Hash {
	hashes := make([]common.Hash, len(s))
	for i, tx := range s {
		hashes[i] = tx.Hash()
	}
	return hashes
}

func rlpHash(x interface{}) (h common.Hash) {
	enc, err := rlp.EncodeToBytes(x)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}
