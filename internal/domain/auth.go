package domain

import "strings"

// TokenTypeAccess is the only token kind accepted by the service.
// Refresh tokens carry type "refresh" and must be rejected.
const TokenTypeAccess = "access"

const (
	RoleAgent        = "agent"
	RoleAgentManager = "agent_manager"
	RoleAgentAdmin   = "agent_admin"
	RoleAdmin        = "admin"
)

// AuthContext is the verified identity of the caller, extracted once per
// request from the access token and read-only afterwards.
type AuthContext struct {
	UserID    string
	AgencyID  string
	Role      string
	TokenType string
}

// CanUpload reports whether the role may upload photos. The same list
// gates presigned-URL generation.
func (a *AuthContext) CanUpload() bool {
	switch a.Role {
	case RoleAgent, RoleAgentManager, RoleAgentAdmin:
		return true
	}
	return false
}

// CanDelete reports whether the role may delete photos: any agent_* role
// or any admin_* role, including superadmin-style variants.
func (a *AuthContext) CanDelete() bool {
	return strings.HasPrefix(a.Role, "agent") || strings.HasPrefix(a.Role, "admin")
}

// IsAdmin reports whether the caller bypasses the key ownership guard.
// Only the exact "admin" role does; agency admins do not.
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}
