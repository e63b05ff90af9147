package route

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/goGate/role"
)

// Access is the kind of requirement a path carries.
type Access int

const (
	AnyAuthenticated Access = iota
	Public
	RequiresRoles
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case AnyAuthenticated:
		return "authenticated"
	case RequiresRoles:
		return "roles"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// ParseAccess accepts the names produced by String.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return Public, nil
	case "authenticated", "any", "":
		return AnyAuthenticated, nil
	case "roles":
		return RequiresRoles, nil
	}
	return 0, fmt.Errorf("route: unknown access %q", s)
}

// Requirement is the classification result for a path. Roles is only
// meaningful when Access is RequiresRoles.
type Requirement struct {
	Access Access
	Roles  role.Set
}

// Allows reports whether an authenticated caller holding roleName satisfies r.
func (r Requirement) Allows(reg *role.Registry, roleName string) bool {
	switch r.Access {
	case Public, AnyAuthenticated:
		return true
	case RequiresRoles:
		return reg.Contains(r.Roles, roleName)
	}
	return false
}

// Describe renders r for logs and the CLI, e.g. "roles[admin,manager]".
func (r Requirement) Describe(reg *role.Registry) string {
	if r.Access != RequiresRoles {
		return r.Access.String()
	}
	return "roles[" + strings.Join(reg.Names(r.Roles), ",") + "]"
}
