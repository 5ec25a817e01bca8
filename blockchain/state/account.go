package state

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// AccountRecordLength is the size of a persisted account: a 32 byte big
// endian balance followed by a 4 byte big endian nonce.
const AccountRecordLength = 32 + 4

// Account is the native balance and nonce of an address. An address without
// an entry behaves as a zero balance, zero nonce account.
type Account struct {
	Balance *uint256.Int
	Nonce   uint32
}

func newAccount() *Account {
	return &Account{Balance: new(uint256.Int)}
}

// Copy returns an independent copy of the account.
func (a *Account) Copy() *Account {
	return &Account{Balance: new(uint256.Int).Set(a.Balance), Nonce: a.Nonce}
}

// EncodeAccount returns the persisted record of a.
func EncodeAccount(a *Account) []byte {
	enc := make([]byte, AccountRecordLength)
	balance := a.Balance.Bytes32()
	copy(enc[:32], balance[:])
	binary.BigEndian.PutUint32(enc[32:], a.Nonce)
	return enc
}

// DecodeAccount parses a persisted record.
func DecodeAccount(enc []byte) (*Account, error) {
	if len(enc) != AccountRecordLength {
		return nil, fmt.Errorf("invalid account record length %d, want %d", len(enc), AccountRecordLength)
	}
	return &Account{
		Balance: new(uint256.Int).SetBytes(enc[:32]),
		Nonce:   binary.BigEndian.Uint32(enc[32:]),
	}, nil
}
