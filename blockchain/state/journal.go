package state

import (
	"fmt"
	"math"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
	"github.com/holiman/uint256"
)

// Writer stages mutations made inside StateDB.Update. Nothing reaches the
// ledger until the update function returns nil, so a failed block leaves
// no trace.
type Writer struct {
	db        *StateDB
	dirty     map[common.Address]*Account
	clearPool bool
	removed   []common.Hash
}

func newWriter(db *StateDB) *Writer {
	return &Writer{db: db, dirty: make(map[common.Address]*Account)}
}

// account returns the staged copy of addr, creating it on first touch.
func (w *Writer) account(addr common.Address) *Account {
	if acc, ok := w.dirty[addr]; ok {
		return acc
	}
	acc := newAccount()
	if base, ok := w.db.accounts[addr]; ok {
		acc = base.Copy()
	}
	w.dirty[addr] = acc
	return acc
}

// GetBalance returns the staged balance of addr.
func (w *Writer) GetBalance(addr common.Address) *uint256.Int {
	if acc, ok := w.dirty[addr]; ok {
		return new(uint256.Int).Set(acc.Balance)
	}
	return w.db.balance(addr)
}

// GetNonce returns the staged nonce of addr.
func (w *Writer) GetNonce(addr common.Address) uint32 {
	if acc, ok := w.dirty[addr]; ok {
		return acc.Nonce
	}
	return w.db.nonce(addr)
}

// AddBalance credits amount to addr.
func (w *Writer) AddBalance(addr common.Address, amount *uint256.Int) error {
	acc := w.account(addr)
	sum, overflow := new(uint256.Int).AddOverflow(acc.Balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance of %s overflows", ErrStateInvariant, addr.Hex())
	}
	acc.Balance = sum
	return nil
}

// ApplyTransfer debits value+fee from sender, credits value to recipient and
// bumps the sender nonce. Callers validate first; an underflow is reported
// as ErrStateInvariant and nothing of the transfer is staged.
func (w *Writer) ApplyTransfer(from, to common.Address, value, fee *uint256.Int) error {
	cost, overflow := new(uint256.Int).AddOverflow(value, fee)
	if overflow {
		return fmt.Errorf("%w: cost overflows", ErrStateInvariant)
	}
	sender := w.account(from)
	if sender.Balance.Lt(cost) {
		return fmt.Errorf("%w: balance of %s below %s", ErrStateInvariant, from.Hex(), cost.ToBig())
	}
	if sender.Nonce == math.MaxUint32 {
		return fmt.Errorf("%w: nonce of %s overflows", ErrStateInvariant, from.Hex())
	}
	recipient := w.account(to)
	credited, overflow := new(uint256.Int).AddOverflow(recipient.Balance, value)
	if overflow && from != to {
		return fmt.Errorf("%w: balance of %s overflows", ErrStateInvariant, to.Hex())
	}
	if from == to {
		// Self transfers only burn the fee.
		sender.Balance = new(uint256.Int).Sub(sender.Balance, fee)
	} else {
		sender.Balance = new(uint256.Int).Sub(sender.Balance, cost)
		recipient.Balance = credited
	}
	sender.Nonce++
	return nil
}

// ApplyTransaction stages tx as a native transfer.
func (w *Writer) ApplyTransaction(tx *model.Transaction) error {
	value, overflow := uint256.FromBig(tx.Value())
	if overflow {
		return fmt.Errorf("%w: value of %s exceeds 256 bits", ErrStateInvariant, tx.Hash().Hex())
	}
	fee, overflow := uint256.FromBig(tx.Fee())
	if overflow {
		return fmt.Errorf("%w: fee of %s exceeds 256 bits", ErrStateInvariant, tx.Hash().Hex())
	}
	return w.ApplyTransfer(tx.From(), tx.To(), value, fee)
}

// RemoveTx drops one pending transaction on commit.
func (w *Writer) RemoveTx(hash common.Hash) {
	w.removed = append(w.removed, hash)
}

// ClearPool empties the mempool on commit.
func (w *Writer) ClearPool() {
	w.clearPool = true
}

func (w *Writer) commit() {
	for addr, acc := range w.dirty {
		w.db.accounts[addr] = acc
	}
	for _, hash := range w.removed {
		w.db.pool.remove(hash)
	}
	if w.clearPool {
		w.db.pool.clear()
	}
}
