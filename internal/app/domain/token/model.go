package token

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Balance is one holder's canonical token balance.
type Balance struct {
	Holder common.Address
	Amount *uint256.Int
}

// Supply summarises the canonical token ledger.
type Supply struct {
	Total   *uint256.Int
	Minters []common.Address
}

// Errors surfaced by the canonical and custodied asset ledgers. Balance
// failures propagate to swap callers unmodified.
var (
	// ErrInsufficientBalance rejects debits and burns beyond the held
	// amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotMinter rejects canonical mints from addresses outside the minter
	// set.
	ErrNotMinter = errors.New("caller is not a minter")
)
