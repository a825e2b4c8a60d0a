package bridge

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Base is the denominator for proportional swap fees: a fee of Base deducts
// the full amount, a fee of Base/100 deducts 1%.
const Base uint64 = 1_000_000_000

// Config is the registered configuration for one bridge token.
type Config struct {
	// Token identifies the wrapped bridge asset.
	Token common.Address
	// Cap is the exposure ceiling: the maximum balance of the bridge asset
	// the system may custody.
	Cap *uint256.Int
	// HourlyLimit is the maximum volume mintable through this bridge within
	// one hour bucket.
	HourlyLimit *uint256.Int
	// Fee is the proportional swap fee in parts-per-Base. Fee never exceeds
	// Base.
	Fee uint64
	// Allowed marks the bridge as registered. A config with Allowed=false is
	// indistinguishable from an unregistered bridge on every read path.
	Allowed bool
	// Paused suspends swaps without deregistering.
	Paused bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (c Config) Clone() Config {
	out := c
	if c.Cap != nil {
		out.Cap = new(uint256.Int).Set(c.Cap)
	}
	if c.HourlyLimit != nil {
		out.HourlyLimit = new(uint256.Int).Set(c.HourlyLimit)
	}
	return out
}

// Usable reports whether swaps may run against this bridge.
func (c Config) Usable() bool {
	return c.Allowed && !c.Paused
}

// IsNullToken reports whether the identifier is the zero address, which is
// never a valid bridge token.
func IsNullToken(token common.Address) bool {
	return token == (common.Address{})
}

// ValidFee reports whether a proportional fee is within range.
func ValidFee(fee uint64) bool {
	return fee <= Base
}
