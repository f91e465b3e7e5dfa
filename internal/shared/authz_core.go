package shared

// Permission names guarded by the API.
const (
	PermAccountsRead  = "ACCOUNTS_READ"
	PermAccountsWrite = "ACCOUNTS_WRITE"

	PermUsersRead  = "USERS_READ"
	PermUsersWrite = "USERS_WRITE"

	PermRolesRead  = "ROLES_READ"
	PermRolesWrite = "ROLES_WRITE"
)

// Built-in role names.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
	RoleOperator = "OPERATOR"
)

// DefaultRole is assigned at registration when no known role was requested.
const DefaultRole = RoleCustomer

// CoreScopes lists every permission the API knows about.
func CoreScopes() []string {
	return []string{
		PermAccountsRead,
		PermAccountsWrite,
		PermUsersRead,
		PermUsersWrite,
		PermRolesRead,
		PermRolesWrite,
	}
}
