package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/community-portal/internal/domain"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

type accessKind int

const (
	accessPublic accessKind = iota
	accessAuthenticated
	accessRoles
)

// Access is the requirement a route places on the caller.
type Access struct {
	kind  accessKind
	roles map[domain.Role]struct{}
}

var (
	// Public lets anonymous callers through.
	Public = Access{kind: accessPublic}
	// Authenticated requires any resolved identity.
	Authenticated = Access{kind: accessAuthenticated}
)

// AllowRoles requires the caller to hold one of the listed roles. Roles are not
// ranked: every role that should pass must be listed.
func AllowRoles(roles ...domain.Role) Access {
	set := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return Access{kind: accessRoles, roles: set}
}

// Check returns nil when the identity satisfies the requirement, Unauthorized
// for anonymous callers and Forbidden for callers missing a listed role.
func (a Access) Check(id Identity, authenticated bool) error {
	switch a.kind {
	case accessPublic:
		return nil
	case accessAuthenticated:
		if !authenticated {
			return apperrors.NewUnauthorized("authentication required")
		}
		return nil
	default:
		if !authenticated {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, ok := a.roles[id.Role]; !ok {
			return apperrors.NewForbidden("insufficient role")
		}
		return nil
	}
}

// Rule binds a path prefix and optional method set to an access requirement.
type Rule struct {
	Prefix  string
	Methods []string
	Access  Access
}

func (r Rule) matches(method, path string) bool {
	if !matchPrefix(path, r.Prefix) {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// Policy is an ordered authorization table. The first matching rule wins and
// unmatched paths are public.
type Policy struct {
	rules []Rule
}

// NewPolicy builds a policy from ordered rules.
func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

var (
	adminRoles = []domain.Role{domain.RoleAdmin, domain.RoleSuperAdmin}
	staffRoles = []domain.Role{domain.RoleSupportStaff, domain.RoleModerator, domain.RoleAdmin, domain.RoleSuperAdmin}
)

// DefaultPolicy is the portal's route table.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{Prefix: "/api/auth/", Access: Public},
		Rule{Prefix: "/api/admin/", Access: AllowRoles(adminRoles...)},
		Rule{Prefix: "/api/support/staff/", Access: AllowRoles(domain.RoleSupportStaff, domain.RoleAdmin, domain.RoleSuperAdmin)},
		Rule{Prefix: "/api/support/", Access: Authenticated},
		Rule{Prefix: "/api/users/", Access: Authenticated},
		Rule{Prefix: "/api/news/admin/", Access: AllowRoles(adminRoles...)},
		Rule{Prefix: "/api/news", Methods: []string{fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete}, Access: AllowRoles(adminRoles...)},
		Rule{Prefix: "/admin", Access: AllowRoles(adminRoles...)},
		Rule{Prefix: "/staff", Access: AllowRoles(staffRoles...)},
		Rule{Prefix: "/home", Access: Authenticated},
		Rule{Prefix: "/profile", Access: Authenticated},
	)
}

// Decide returns the requirement for a request.
func (p *Policy) Decide(method, path string) Access {
	for _, rule := range p.rules {
		if rule.matches(method, path) {
			return rule.Access
		}
	}
	return Public
}

// Authorize enforces the policy against the identity resolved by Authenticator.
func Authorize(policy *Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := IdentityFromContext(c.UserContext())
		if err := policy.Decide(c.Method(), c.Path()).Check(id, ok); err != nil {
			return err
		}
		return c.Next()
	}
}

// IsStaff reports whether the role may use the staff console.
func IsStaff(role domain.Role) bool {
	for _, r := range staffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role may use the admin console.
func IsAdmin(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleSuperAdmin
}

// matchPrefix matches whole path segments, so "/admin" does not match "/administrator".
func matchPrefix(path, prefix string) bool {
	if strings.HasSuffix(prefix, "/") {
		return strings.HasPrefix(path, prefix) || path == strings.TrimSuffix(prefix, "/")
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
