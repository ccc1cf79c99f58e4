package enums

// Role is the platform role carried in access tokens. Sellers and companies
// manage orders on their listings; admins see everything.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleCompany  Role = "company"
	RoleAdmin    Role = "admin"
)

var roles = members[Role]{RoleCustomer, RoleSeller, RoleCompany, RoleAdmin}

func (r Role) IsValid() bool { return roles.has(r) }
