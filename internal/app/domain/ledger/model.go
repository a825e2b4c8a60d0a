package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BucketSeconds is the width of one usage bucket.
const BucketSeconds = 3600

// HourIndex returns the bucket index for a point in time: floor(unix/3600).
// Buckets are non-overlapping; rate limits reset at the top of each hour
// rather than rolling continuously.
func HourIndex(t time.Time) int64 {
	return t.Unix() / BucketSeconds
}

// Usage is a point-in-time view of one bridge's inbound bucket.
type Usage struct {
	Token  common.Address
	Hour   int64
	Volume *uint256.Int
}

// ChainUsage is a point-in-time view of the chain-wide outbound bucket.
type ChainUsage struct {
	Hour   int64
	Volume *uint256.Int
	Limit  *uint256.Int
}
