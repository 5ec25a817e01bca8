package state

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrSignatureInvalid is returned if the transaction signature did not
	// recover to a sender, or was made for another chain.
	ErrSignatureInvalid = errors.New("transaction signature not verified")

	// ErrInsufficientBalance is returned if the sender cannot cover value plus
	// fee. Unknown senders count as a zero balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidNonce is returned if the transaction nonce is not exactly the
	// sender's current nonce, or another pending transaction already uses it.
	ErrInvalidNonce = errors.New("invalid nonce")

	// ErrStateInvariant is returned when applying a transfer would wrap a
	// balance or nonce. The validation engine rules this out, so seeing it
	// means a caller skipped validation.
	ErrStateInvariant = errors.New("state invariant violated")
)

// JSON-RPC error codes reported for rejected transactions.
const (
	CodeInvalidNonce        = -32001
	CodeInsufficientBalance = -32002
	CodeRejected            = -32003
)

// TxError describes why a transaction was refused admission.
type TxError struct {
	Err  error
	Code int

	Required  *big.Int // set for ErrInsufficientBalance
	Available *big.Int

	AccountNonce uint64 // set for ErrInvalidNonce
	TxNonce      uint64

	Detail string
}

func (e *TxError) Error() string {
	switch e.Err {
	case ErrInsufficientBalance:
		return fmt.Sprintf("Transaction rejected: Insufficient balance - required: %v, available: %v", e.Required, e.Available)
	case ErrInvalidNonce:
		return fmt.Sprintf("Transaction rejected: Invalid nonce - have: %d, want: %d", e.TxNonce, e.AccountNonce)
	}
	if e.Detail != "" {
		return fmt.Sprintf("Transaction rejected: %v: %s", e.Err, e.Detail)
	}
	return "Transaction rejected: " + e.Err.Error()
}

// Unwrap returns the sentinel error.
func (e *TxError) Unwrap() error { return e.Err }

// ErrorCode returns the JSON-RPC error code.
func (e *TxError) ErrorCode() int { return e.Code }
