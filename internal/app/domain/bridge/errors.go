package bridge

import "errors"

// Sentinel errors surfaced by the registry and swap paths. Handlers classify
// with errors.Is, so mutating paths wrap rather than replace these.
var (
	// ErrInvalidBridge rejects registration of the zero identifier or an
	// identifier that is already registered.
	ErrInvalidBridge = errors.New("invalid bridge token")

	// ErrUnknownBridge rejects mutations of identifiers that are not
	// currently registered.
	ErrUnknownBridge = errors.New("unknown bridge token")

	// ErrFeeTooHigh rejects fees above Base.
	ErrFeeTooHigh = errors.New("fee exceeds base")

	// ErrExposureOutstanding rejects deregistration while the system still
	// custodies a nonzero balance of the bridge asset.
	ErrExposureOutstanding = errors.New("bridge exposure outstanding")

	// ErrInvalidToken rejects swaps against unregistered or paused bridges.
	ErrInvalidToken = errors.New("token not swappable")

	// ErrHourlyLimitExceeded rejects outbound swaps that would push the
	// chain-wide hourly volume past its limit. Outbound swaps never clamp.
	ErrHourlyLimitExceeded = errors.New("hourly limit exceeded")

	// ErrTransferFailed propagates an underlying asset transfer failure
	// during an inbound swap.
	ErrTransferFailed = errors.New("asset transfer failed")

	// ErrNotAuthorized rejects callers without the required governance role.
	ErrNotAuthorized = errors.New("not authorized")
)
