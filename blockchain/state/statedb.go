// Package state keeps the native account ledger and the pending transaction
// pool behind one readers-writer lock.
package state

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/logger"
	"github.com/holiman/uint256"
)

var log = logger.NewLogger("[state]")

// AdmitResult tells the caller what AddTx did with an accepted transaction.
type AdmitResult int

const (
	// Admitted means the transaction was inserted into the pool.
	Admitted AdmitResult = iota
	// AlreadyKnown means a transaction with the same hash was pending, the
	// call changed nothing.
	AlreadyKnown
)

func (r AdmitResult) String() string {
	switch r {
	case Admitted:
		return "admitted"
	case AlreadyKnown:
		return "already known"
	}
	return fmt.Sprintf("AdmitResult(%d)", int(r))
}

// StateDB is the account ledger together with the mempool. Reads take the
// shared lock and may overlap; admission, block application, loading and
// saving take the exclusive lock and serialize against everything else.
type StateDB struct {
	mu       sync.RWMutex
	accounts map[common.Address]*Account
	pool     *txPool
	chainID  uint64
}

// New creates an empty ledger for transactions signed on chainID.
func New(chainID uint64) *StateDB {
	return &StateDB{
		accounts: make(map[common.Address]*Account),
		pool:     newTxPool(),
		chainID:  chainID,
	}
}

// ChainID returns the chain the ledger accepts transactions for.
func (s *StateDB) ChainID() uint64 { return s.chainID }

func (s *StateDB) balance(addr common.Address) *uint256.Int {
	if acc, ok := s.accounts[addr]; ok {
		return new(uint256.Int).Set(acc.Balance)
	}
	return new(uint256.Int)
}

func (s *StateDB) nonce(addr common.Address) uint32 {
	if acc, ok := s.accounts[addr]; ok {
		return acc.Nonce
	}
	return 0
}

// GetBalance returns the balance of addr, zero for unknown addresses.
func (s *StateDB) GetBalance(addr common.Address) *uint256.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance(addr)
}

// GetNonce returns the nonce of addr, zero for unknown addresses.
func (s *StateDB) GetNonce(addr common.Address) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nonce(addr)
}

// Exist reports whether addr has a ledger entry.
func (s *StateDB) Exist(addr common.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[addr]
	return ok
}

// AddBalance credits amount to addr. Only genesis seeding and the faucet
// create value this way.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int) error {
	return s.Update(func(w *Writer) error {
		return w.AddBalance(addr, amount)
	})
}

// Faucet credits a decimal amount to addr.
func (s *StateDB) Faucet(addr common.Address, amount string) error {
	value, err := ParseAmount(amount)
	if err != nil {
		return err
	}
	if err := s.AddBalance(addr, value); err != nil {
		return err
	}
	log.Infof("Faucet credited %s to %s", amount, addr.Hex())
	return nil
}

// Accounts returns an independent copy of every ledger entry.
func (s *StateDB) Accounts() map[common.Address]*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make(map[common.Address]*Account, len(s.accounts))
	for addr, acc := range s.accounts {
		accounts[addr] = acc.Copy()
	}
	return accounts
}

// required returns value + gasPrice*gas as a 256 bit integer.
func required(tx *model.Transaction) (*uint256.Int, bool) {
	return uint256.FromBig(tx.Cost())
}

// AddTx runs the admission check and, if it passes, inserts tx into the
// pool. Check and insert happen in one exclusive critical section, so no
// block can land between them.
//
// A transaction whose hash is already pending is reported as AlreadyKnown
// without being checked again. Refusals are *TxError values carrying the
// JSON-RPC code and the amounts involved.
func (s *StateDB) AddTx(tx *model.Transaction) (AdmitResult, error) {
	if !tx.Verified() {
		log.Warningf("Rejected tx %x: signature not verified", tx.Hash())
		return 0, &TxError{Err: ErrSignatureInvalid, Code: CodeRejected}
	}
	if tx.ChainID() != s.chainID {
		log.Warningf("Rejected tx %x: signed for chain %d, want %d", tx.Hash(), tx.ChainID(), s.chainID)
		return 0, &TxError{Err: ErrSignatureInvalid, Code: CodeRejected,
			Detail: fmt.Sprintf("chain id %d, want %d", tx.ChainID(), s.chainID)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := tx.Hash()
	if s.pool.has(hash) {
		log.Debugf("Tx %x already pending", hash)
		return AlreadyKnown, nil
	}

	need, overflow := required(tx)
	from := tx.From()
	acc, known := s.accounts[from]
	if !known || overflow || acc.Balance.Lt(need) {
		available := new(big.Int)
		if known {
			available = acc.Balance.ToBig()
		}
		log.Warningf("Rejected tx %x: insufficient balance of %s, required %v, available %v",
			hash, from.Hex(), tx.Cost(), available)
		return 0, &TxError{Err: ErrInsufficientBalance, Code: CodeInsufficientBalance,
			Required: tx.Cost(), Available: available}
	}
	if uint64(acc.Nonce) != tx.Nonce() || s.pool.hasNonce(from, tx.Nonce()) {
		log.Warningf("Rejected tx %x: nonce %d of %s, account at %d", hash, tx.Nonce(), from.Hex(), acc.Nonce)
		return 0, &TxError{Err: ErrInvalidNonce, Code: CodeInvalidNonce,
			AccountNonce: uint64(acc.Nonce), TxNonce: tx.Nonce()}
	}

	s.pool.add(tx)
	log.Debugf("Admitted tx %x from %s, nonce %d, pool size %d", hash, from.Hex(), tx.Nonce(), s.pool.len())
	return Admitted, nil
}

// ValidateTxForBlock is the inclusion check run on every ordinary
// transaction of a candidate block. A pending transaction already passed
// admission and is accepted as is.
func (s *StateDB) ValidateTxForBlock(tx *model.Transaction) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validateTxForBlock(tx)
}

// ValidateTxsForBlock runs the inclusion check over the ordinary
// transactions of one block, in block order, and returns the index of the
// first one that fails or -1. On top of the per transaction check, every
// transaction is staged on a throwaway Writer: a sender's nonce must be its
// ledger nonce plus its earlier transactions in the block, and their
// combined cost must fit its balance.
func (s *StateDB) ValidateTxsForBlock(txs model.Transactions) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := newWriter(s)
	for i, tx := range txs {
		if !s.validateTxForBlock(tx) {
			return i
		}
		if uint64(w.GetNonce(tx.From())) != tx.Nonce() {
			log.Debugf("Tx %x reuses nonce %d of %s within the block", tx.Hash(), tx.Nonce(), tx.From().Hex())
			return i
		}
		if err := w.ApplyTransaction(tx); err != nil {
			log.Debugf("Tx %x overspends within the block: %v", tx.Hash(), err)
			return i
		}
	}
	return -1
}

func (s *StateDB) validateTxForBlock(tx *model.Transaction) bool {
	if !tx.Verified() || tx.ChainID() != s.chainID {
		return false
	}
	if s.pool.has(tx.Hash()) {
		return true
	}
	acc, ok := s.accounts[tx.From()]
	if !ok {
		return false
	}
	need, overflow := required(tx)
	if overflow || acc.Balance.Lt(need) {
		return false
	}
	return uint64(acc.Nonce) == tx.Nonce()
}

// PendingTxs returns a consistent snapshot of the pool, ordered by sender,
// nonce and hash.
func (s *StateDB) PendingTxs() model.Transactions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.snapshot()
}

// HasTx reports whether hash is pending.
func (s *StateDB) HasTx(hash common.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.has(hash)
}

// GetTx returns the pending transaction with the given hash, or nil.
func (s *StateDB) GetTx(hash common.Hash) *model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.get(hash)
}

// PoolSize returns the number of pending transactions.
func (s *StateDB) PoolSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool.len()
}

// RemoveTx drops one pending transaction and reports whether it was there.
func (s *StateDB) RemoveTx(hash common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.remove(hash)
}

// Update runs fn with a Writer under the exclusive lock. The staged changes
// are committed only when fn returns nil, so readers see either none or all
// of them.
func (s *StateDB) Update(fn func(w *Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := newWriter(s)
	if err := fn(w); err != nil {
		return err
	}
	w.commit()
	return nil
}

// ParseAmount parses a decimal or 0x prefixed hex amount.
func ParseAmount(s string) (*uint256.Int, error) {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	amount, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("amount %q exceeds 256 bits", s)
	}
	return amount, nil
}
