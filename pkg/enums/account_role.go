package enums

import "fmt"

// AccountRole determines what a caller may do on the ledger API.
type AccountRole string

const (
	AccountRoleMember  AccountRole = "member"
	AccountRoleAdmin   AccountRole = "admin"
	AccountRoleService AccountRole = "service"
)

func (r AccountRole) IsValid() bool {
	switch r {
	case AccountRoleMember, AccountRoleAdmin, AccountRoleService:
		return true
	default:
		return false
	}
}

// ParseAccountRole converts raw input into an AccountRole.
func ParseAccountRole(value string) (AccountRole, error) {
	role := AccountRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid account role %q", value)
	}
	return role, nil
}
