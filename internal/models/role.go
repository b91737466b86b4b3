package models

// Role is a permission level. Roles form a total order, see Rank.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleEditor    Role = "editor"
	RoleUser      Role = "user"
)

var roleRanks = map[Role]int{
	RoleAdmin:     4,
	RoleModerator: 3,
	RoleEditor:    2,
	RoleUser:      1,
}

// Rank returns the role's position in the hierarchy, or 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a raw string into a known Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
