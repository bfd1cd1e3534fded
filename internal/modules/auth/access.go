package auth

import "github.com/georgemunganga/tillkeeper/internal/modules/user"

// Scope names one permission checked by a service operation.
type Scope string

const (
	ScopeShiftRead            Scope = "shift:read"
	ScopeShiftOpen            Scope = "shift:open"
	ScopeShiftClose           Scope = "shift:close"
	ScopeShiftReconcile       Scope = "shift:reconcile"
	ScopeShiftApproveVariance Scope = "shift:approve_variance"
	ScopeShiftBackfill        Scope = "shift:backfill"
	ScopePOSSell              Scope = "pos:sell"
	ScopePOSRefund            Scope = "pos:refund"
	ScopeAuditRead            Scope = "audit:read"
	ScopeDirectoryManage      Scope = "directory:manage"
	ScopeStaffManage          Scope = "staff:manage"
)

// AccessControl answers whether an actor holds a scope.
type AccessControl interface {
	Check(actor Actor, scope Scope) bool
}

// RoleAccessControl grants scopes from a fixed role table.
type RoleAccessControl struct {
	grants map[user.Role]map[Scope]bool
}

var _ AccessControl = (*RoleAccessControl)(nil)

var defaultGrants = map[user.Role][]Scope{
	user.RoleCashier: {
		ScopeShiftRead, ScopeShiftOpen, ScopeShiftClose, ScopeShiftReconcile,
		ScopePOSSell,
	},
	user.RoleShiftManager: {
		ScopeShiftRead, ScopeShiftOpen, ScopeShiftClose, ScopeShiftReconcile,
		ScopeShiftApproveVariance, ScopePOSSell, ScopePOSRefund, ScopeAuditRead,
	},
	user.RoleStoreManager: {
		ScopeShiftRead, ScopeShiftOpen, ScopeShiftClose, ScopeShiftReconcile,
		ScopeShiftApproveVariance, ScopeShiftBackfill, ScopePOSSell, ScopePOSRefund,
		ScopeAuditRead, ScopeDirectoryManage, ScopeStaffManage,
	},
}

// NewRoleAccessControl builds the default table. Admins hold every scope.
func NewRoleAccessControl() *RoleAccessControl {
	grants := make(map[user.Role]map[Scope]bool, len(defaultGrants))
	for role, scopes := range defaultGrants {
		set := make(map[Scope]bool, len(scopes))
		for _, s := range scopes {
			set[s] = true
		}
		grants[role] = set
	}
	return &RoleAccessControl{grants: grants}
}

func (c *RoleAccessControl) Check(actor Actor, scope Scope) bool {
	if actor.Role == user.RoleAdmin {
		return true
	}
	return c.grants[actor.Role][scope]
}
