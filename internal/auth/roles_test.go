package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/community-portal/internal/domain"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

func TestDefaultPolicyDecisions(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		name   string
		method string
		path   string
		role   domain.Role
		anon   bool
		code   string
	}{
		{"auth endpoints are public", "POST", "/api/auth/login", "", true, ""},
		{"news reads are public", "GET", "/api/news/carousel", "", true, ""},
		{"news writes need a session", "POST", "/api/news", "", true, apperrors.CodeUnauthorized},
		{"news writes reject users", "POST", "/api/news", domain.RoleUser, false, apperrors.CodeForbidden},
		{"news writes allow admins", "PUT", "/api/news/p1", domain.RoleAdmin, false, ""},
		{"news admin reads are admin only", "GET", "/api/news/admin/status/DRAFT", domain.RoleModerator, false, apperrors.CodeForbidden},
		{"admin api allows super admin", "GET", "/api/admin/users", domain.RoleSuperAdmin, false, ""},
		{"admin api allows admin", "DELETE", "/api/admin/users/u1", domain.RoleAdmin, false, ""},
		{"admin api rejects staff", "GET", "/api/admin/users", domain.RoleSupportStaff, false, apperrors.CodeForbidden},
		{"staff tickets allow staff", "GET", "/api/support/staff/tickets", domain.RoleSupportStaff, false, ""},
		{"staff tickets allow super admin", "GET", "/api/support/staff/tickets", domain.RoleSuperAdmin, false, ""},
		{"staff tickets reject moderators", "GET", "/api/support/staff/tickets", domain.RoleModerator, false, apperrors.CodeForbidden},
		{"own tickets need authentication", "GET", "/api/support/tickets", "", true, apperrors.CodeUnauthorized},
		{"own tickets allow users", "GET", "/api/support/tickets", domain.RoleUser, false, ""},
		{"staff console allows moderators", "GET", "/staff", domain.RoleModerator, false, ""},
		{"admin console allows super admin", "GET", "/admin", domain.RoleSuperAdmin, false, ""},
		{"admin prefix matches whole segments", "GET", "/administrator", "", true, ""},
		{"profile needs authentication", "GET", "/profile", "", true, apperrors.CodeUnauthorized},
		{"unknown paths are public", "GET", "/health/live", "", true, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Identity{Username: "u", Role: tc.role}
			err := policy.Decide(tc.method, tc.path).Check(id, !tc.anon)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestEveryAdminRuleAdmitsSuperAdmin(t *testing.T) {
	policy := DefaultPolicy()
	id := Identity{Username: "root", Role: domain.RoleSuperAdmin}

	for _, rule := range policy.rules {
		assert.NoError(t, rule.Access.Check(id, true), "rule %s", rule.Prefix)
	}
}

func TestFirstMatchWins(t *testing.T) {
	policy := NewPolicy(
		Rule{Prefix: "/api/x/open/", Access: Public},
		Rule{Prefix: "/api/x/", Access: Authenticated},
	)

	assert.NoError(t, policy.Decide("GET", "/api/x/open/1").Check(Identity{}, false))
	assert.Error(t, policy.Decide("GET", "/api/x/closed").Check(Identity{}, false))
}
