package auth

// Role grades access to the monitoring API.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// NormalizeRole validates and canonicalizes a raw role string.
func NormalizeRole(raw string) (Role, bool) {
	role := Role(raw)
	if _, ok := roleRank[role]; !ok {
		return "", false
	}
	return role, true
}

// RoleAtLeast reports whether have satisfies want.
func RoleAtLeast(have, want Role) bool {
	return roleRank[have] >= roleRank[want]
}
