package state

import (
	"bytes"
	"encoding/json"
	"sort"
)

type DumpAccount struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint32 `json:"nonce"`
}

type Dump struct {
	Accounts []DumpAccount `json:"accounts"`
	Pending  int           `json:"pending"`
}

// RawDump returns the ledger ordered by address.
func (s *StateDB) RawDump() Dump {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dump := Dump{
		Accounts: make([]DumpAccount, 0, len(s.accounts)),
		Pending:  s.pool.len(),
	}
	for addr, acc := range s.accounts {
		dump.Accounts = append(dump.Accounts, DumpAccount{
			Address: addr.Hex(),
			Balance: acc.Balance.ToBig().String(),
			Nonce:   acc.Nonce,
		})
	}
	sort.Slice(dump.Accounts, func(i, j int) bool {
		return bytes.Compare([]byte(dump.Accounts[i].Address), []byte(dump.Accounts[j].Address)) < 0
	})
	return dump
}

func (s *StateDB) Dump() []byte {
	jsonObj, err := json.MarshalIndent(s.RawDump(), "", "    ")
	if err != nil {
		log.Error("dump err", err)
	}

	return jsonObj
}
