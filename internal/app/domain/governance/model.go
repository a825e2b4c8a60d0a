package governance

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Role names the authority level a mutation required.
type Role string

const (
	// RoleGovernor covers registration, deregistration and asset recovery.
	RoleGovernor Role = "governor"
	// RoleGovernorOrGuardian covers operational controls: caps, limits,
	// fees, pause toggles and fee exemptions.
	RoleGovernorOrGuardian Role = "governor-or-guardian"
	// RoleTreasury covers the minter sub-role, granted by the treasury
	// exclusively.
	RoleTreasury Role = "treasury"
)

// AuditEntry records one authorized governance mutation.
type AuditEntry struct {
	ID     string
	Caller common.Address
	Role   Role
	// Action is the mutation name, e.g. "register", "set_fee".
	Action string
	// Target is the bridge token or address the mutation applied to, when
	// one exists.
	Target string
	// Detail captures the new value in display form.
	Detail    string
	CreatedAt time.Time
}
