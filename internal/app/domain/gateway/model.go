package gateway

import (
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Operation distinguishes the two native-gateway paths.
type Operation string

const (
	// OperationDeposit mints canonical tokens on receipt from the native
	// bridge gateway.
	OperationDeposit Operation = "deposit"
	// OperationWithdraw burns canonical tokens on exit.
	OperationWithdraw Operation = "withdraw"
)

// Receipt journals one gateway operation.
type Receipt struct {
	ID        string
	Operation Operation
	// User is the account credited (deposit) or debited (withdraw).
	User common.Address
	// Amount is the canonical amount moved, as a decimal string.
	Amount string
	// Digest uniquely identifies the originating gateway payload; duplicate
	// digests are rejected so replayed deposits cannot double-mint.
	Digest    common.Hash
	CreatedAt time.Time
}

var (
	// ErrDuplicateDeposit rejects a deposit whose payload digest has already
	// been processed.
	ErrDuplicateDeposit = errors.New("deposit already processed")

	// ErrNotDepositor rejects deposits from callers outside the configured
	// depositor set.
	ErrNotDepositor = errors.New("caller lacks depositor authority")

	// ErrBadPayload rejects deposit payloads that do not decode to a user
	// and a positive amount.
	ErrBadPayload = errors.New("malformed gateway payload")
)
