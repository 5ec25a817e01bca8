package model

import (
	"errors"
	"io"
	"sync/atomic"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/common/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrBlockFinalized is returned when a signed block is modified.
var ErrBlockFinalized = errors.New("block already finalized")

// Header represents the fixed part of a block.
type Header struct {
	ParentHash common.Hash `json:"parentHash"`
	Height     uint64      `json:"height"`
	Time       uint64      `json:"timestamp"` // microseconds since the unix epoch
}

// Hash returns the keccak256 hash of the header's RLP encoding.
func (header *Header) Hash() common.Hash {
	return rlpHash(header)
}

// Block represents an entire block: header, ordinary transactions in
// inclusion order, validator-coordination transactions in protocol order,
// and the producer's signature applied once every transaction is in.
type Block struct {
	header       *Header
	transactions Transactions
	validatorTxs Transactions
	signature    []byte

	// caches, filled once the block is finalized
	hash atomic.Value
}

// "external" block encoding. used for storage and the p2p layer.
type extblock struct {
	Header       *Header
	Txs          []*Transaction
	ValidatorTxs []*Transaction
	Signature    []byte
}

// sealdata is what the block hash commits to.
type sealdata struct {
	Header       *Header
	TxHashes     []common.Hash
	ValidatorTxs []common.Hash
}

// NewBlock creates an empty, unsigned block on top of parentHash.
func NewBlock(parentHash common.Hash, time uint64, height uint64) *Block {
	return &Block{header: &Header{ParentHash: parentHash, Height: height, Time: time}}
}

// NewBlockWithHeader creates a block with the given header data. The
// header data is copied, changes to header and to the field values
// will not affect the block.
func NewBlockWithHeader(header *Header) *Block {
	return &Block{header: CopyHeader(header)}
}

// CopyHeader creates a copy of a block header to prevent side effects from
// modifying a header variable.
func CopyHeader(h *Header) *Header {
	cpy := *h
	return &cpy
}

// DecodeRLP decodes a block, recovering the sender of every transaction.
func (block *Block) DecodeRLP(s *rlp.Stream) error {
	var eb extblock
	if err := s.Decode(&eb); err != nil {
		return err
	}
	block.header, block.transactions, block.validatorTxs = eb.Header, eb.Txs, eb.ValidatorTxs
	if len(eb.Signature) > 0 {
		block.signature = eb.Signature
	}
	return nil
}

// EncodeRLP serializes b into the RLP block format.
func (block *Block) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, extblock{
		Header:       block.header,
		Txs:          block.transactions,
		ValidatorTxs: block.validatorTxs,
		Signature:    block.signature,
	})
}

// EncodeBlock returns the RLP encoding of block.
func EncodeBlock(block *Block) ([]byte, error) {
	return rlp.EncodeToBytes(block)
}

// DecodeBlock parses an RLP encoded block.
func DecodeBlock(b []byte) (*Block, error) {
	block := new(Block)
	if err := rlp.DecodeBytes(b, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (block *Block) Transactions() Transactions {
	return append(Transactions(nil), block.transactions...)
}
func (block *Block) ValidatorTransactions() Transactions {
	return append(Transactions(nil), block.validatorTxs...)
}
func (block *Block) Transaction(hash common.Hash) *Transaction {
	for _, transaction := range block.transactions {
		if transaction.Hash() == hash {
			return transaction
		}
	}
	return nil
}
func (block *Block) ParentHash() common.Hash { return block.header.ParentHash }
func (block *Block) Height() uint64          { return block.header.Height }
func (block *Block) Time() uint64            { return block.header.Time }
func (block *Block) Signature() []byte       { return common.CopyBytes(block.signature) }
func (block *Block) Header() *Header         { return CopyHeader(block.header) }

// Finalized reports whether the block carries a signature.
func (block *Block) Finalized() bool { return len(block.signature) > 0 }

// AppendTx appends an ordinary transaction.
func (block *Block) AppendTx(tx *Transaction) error {
	if block.Finalized() {
		return ErrBlockFinalized
	}
	block.transactions = append(block.transactions, tx)
	return nil
}

// AppendValidatorTx appends a validator-coordination transaction.
func (block *Block) AppendValidatorTx(tx *Transaction) error {
	if block.Finalized() {
		return ErrBlockFinalized
	}
	block.validatorTxs = append(block.validatorTxs, tx)
	return nil
}

// Hash returns the keccak256 hash of the header and transaction hashes.
// The signature is not part of it. The hash is cached once the block is
// finalized, before that it tracks appends.
func (block *Block) Hash() common.Hash {
	if hash := block.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	v := rlpHash(&sealdata{
		Header:       block.header,
		TxHashes:     block.transactions.Hashes(),
		ValidatorTxs: block.validatorTxs.Hashes(),
	})
	if block.Finalized() {
		block.hash.Store(v)
	}
	return v
}

// SetSignature finalizes the block. No transaction can be appended afterwards.
func (block *Block) SetSignature(sig []byte) error {
	if block.Finalized() {
		return ErrBlockFinalized
	}
	if len(sig) != crypto.SignatureLength {
		return ErrInvalidSig
	}
	block.signature = common.CopyBytes(sig)
	return nil
}

// Signer recovers the address that finalized the block.
func (block *Block) Signer() (common.Address, error) {
	if !block.Finalized() {
		return common.Address{}, ErrInvalidSig
	}
	return crypto.SigToAddress(block.Hash().Bytes(), block.signature)
}

type Blocks []*Block
