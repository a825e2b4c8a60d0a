package swap

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Direction distinguishes the two swap paths.
type Direction string

const (
	// DirectionIn mints canonical supply against bridge assets pulled in.
	DirectionIn Direction = "in"
	// DirectionOut burns canonical supply and releases bridge assets.
	DirectionOut Direction = "out"
)

// Receipt journals one executed swap. Amounts are decimal strings so the
// journal survives storage and JSON without precision loss.
type Receipt struct {
	ID        string
	Direction Direction
	Token     common.Address
	Caller    common.Address
	Recipient common.Address
	// Requested is the caller-supplied amount before clamping.
	Requested string
	// Accepted is the amount actually accounted after clamping; for outbound
	// swaps it always equals Requested.
	Accepted string
	// Realized is the amount delivered after the fee deduction.
	Realized string
	// Fee is the deducted fee amount.
	Fee string
	// Hour is the usage bucket the swap accrued to.
	Hour      int64
	CreatedAt time.Time
}
