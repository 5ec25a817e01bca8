package state

import (
	"fmt"

	"github.com/entropyio/go-statecore/common"
	"github.com/entropyio/go-statecore/config"
	"github.com/entropyio/go-statecore/database"
	"github.com/entropyio/go-statecore/database/rawdb"
	"github.com/holiman/uint256"
)

// Load replaces the ledger with the accounts persisted in db. On an empty
// store the genesis allocation is credited instead and written back, so
// seeding happens exactly once per store.
func (s *StateDB) Load(db database.KeyValueStore, alloc []config.GenesisAccount) error {
	records, err := rawdb.ReadNativeAccounts(db)
	if err != nil {
		return fmt.Errorf("could not read accounts: %w", err)
	}

	accounts := make(map[common.Address]*Account, len(records))
	if len(records) == 0 {
		for _, ga := range alloc {
			balance, err := ParseAmount(ga.Balance)
			if err != nil {
				return fmt.Errorf("genesis account %s: %w", ga.Address.Hex(), err)
			}
			acc, ok := accounts[ga.Address]
			if !ok {
				acc = newAccount()
				accounts[ga.Address] = acc
			}
			sum, overflow := new(uint256.Int).AddOverflow(acc.Balance, balance)
			if overflow {
				return fmt.Errorf("genesis account %s: balance overflows", ga.Address.Hex())
			}
			acc.Balance = sum
		}
		log.Infof("Seeding %d genesis accounts into empty store", len(accounts))
	} else {
		for addr, enc := range records {
			acc, err := DecodeAccount(enc)
			if err != nil {
				return fmt.Errorf("account %s: %w", addr.Hex(), err)
			}
			accounts[addr] = acc
		}
		log.Infof("Loaded %d accounts", len(accounts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = accounts
	if len(records) == 0 && len(accounts) > 0 {
		return s.save(db)
	}
	return nil
}

// Save writes every ledger entry to db.
func (s *StateDB) Save(db database.Batcher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(db)
}

func (s *StateDB) save(db database.Batcher) error {
	records := make(map[common.Address][]byte, len(s.accounts))
	for addr, acc := range s.accounts {
		records[addr] = EncodeAccount(acc)
	}
	if err := rawdb.WriteNativeAccounts(db, records); err != nil {
		return fmt.Errorf("could not write accounts: %w", err)
	}
	log.Debugf("Saved %d accounts", len(records))
	return nil
}
