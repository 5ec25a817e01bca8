package state

import (
	"bytes"
	"sort"

	"github.com/entropyio/go-statecore/blockchain/model"
	"github.com/entropyio/go-statecore/common"
)

// txPool holds admitted transactions keyed by hash. It has no lock of its
// own: the StateDB lock covers the pool and the ledger together.
type txPool struct {
	all map[common.Hash]*model.Transaction
}

func newTxPool() *txPool {
	return &txPool{all: make(map[common.Hash]*model.Transaction)}
}

func (pool *txPool) add(tx *model.Transaction) {
	pool.all[tx.Hash()] = tx
}

func (pool *txPool) remove(hash common.Hash) bool {
	if _, ok := pool.all[hash]; !ok {
		return false
	}
	delete(pool.all, hash)
	return true
}

func (pool *txPool) has(hash common.Hash) bool {
	_, ok := pool.all[hash]
	return ok
}

func (pool *txPool) get(hash common.Hash) *model.Transaction {
	return pool.all[hash]
}

// hasNonce reports whether a pending transaction from sender uses nonce.
func (pool *txPool) hasNonce(sender common.Address, nonce uint64) bool {
	for _, tx := range pool.all {
		if tx.From() == sender && tx.Nonce() == nonce {
			return true
		}
	}
	return false
}

func (pool *txPool) len() int {
	return len(pool.all)
}

func (pool *txPool) clear() {
	pool.all = make(map[common.Hash]*model.Transaction)
}

// snapshot returns every pending transaction ordered by sender, then nonce,
// then hash, so that two builders over the same pool agree on the order.
func (pool *txPool) snapshot() model.Transactions {
	txs := make(model.Transactions, 0, len(pool.all))
	for _, tx := range pool.all {
		txs = append(txs, tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		fi, fj := txs[i].From(), txs[j].From()
		if c := bytes.Compare(fi[:], fj[:]); c != 0 {
			return c < 0
		}
		if txs[i].Nonce() != txs[j].Nonce() {
			return txs[i].Nonce() < txs[j].Nonce()
		}
		hi, hj := txs[i].Hash(), txs[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
	return txs
}
