package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/community-portal/internal/domain"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

func validationDetails(t *testing.T, err error) map[string]any {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, apperrors.CodeValidation, domainErr.Code)
	return domainErr.Details
}

func TestRegisterRequestValidate(t *testing.T) {
	ok := RegisterRequest{Username: "alice", Email: "alice@gmail.com", Password: "secret123", ConfirmPassword: "secret123"}
	require.NoError(t, ok.Validate())

	bad := RegisterRequest{Username: "al", Email: "not-an-email", Password: "short", ConfirmPassword: "other"}
	details := validationDetails(t, bad.Validate())
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "confirmPassword")
}

func TestFormRegisterRequestRequiresGmail(t *testing.T) {
	ok := FormRegisterRequest{Username: "bob_1", Email: "bob@gmail.com", Password: "x", ConfirmPassword: "x"}
	require.NoError(t, ok.Validate())

	details := validationDetails(t, FormRegisterRequest{
		Username: "bob!", Email: "bob@example.com", Password: "x", ConfirmPassword: "x",
	}.Validate())
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")
	assert.Len(t, details, 2)
}

func TestEnumFieldsAreChecked(t *testing.T) {
	require.NoError(t, UpdateRoleRequest{Role: domain.RoleSuperAdmin}.Validate())
	assert.Contains(t, validationDetails(t, UpdateRoleRequest{Role: "ROOT"}.Validate()), "role")
	assert.Contains(t, validationDetails(t, UpdateRoleRequest{}.Validate()), "role")

	require.NoError(t, UpdateStatusRequest{Status: domain.AccountStatusBanned}.Validate())
	assert.Contains(t, validationDetails(t, UpdateStatusRequest{Status: "GONE"}.Validate()), "status")

	status := domain.TicketStatus("REOPENED")
	assert.Contains(t, validationDetails(t, UpdateTicketRequest{Status: &status}.Validate()), "status")
	require.NoError(t, UpdateTicketRequest{}.Validate())
}

func TestCreateTicketRequestPriorityIsOptional(t *testing.T) {
	req := CreateTicketRequest{Subject: "Lag", Description: "Server lag", Category: "tech"}
	require.NoError(t, req.Validate())

	req.Priority = "CRITICAL"
	assert.Contains(t, validationDetails(t, req.Validate()), "priority")
}

func TestPostRequestIgnoresStatus(t *testing.T) {
	req := PostRequest{Title: "Hello", Content: "World", Type: domain.PostTypeNews, Status: domain.PostStatusPublished}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Hello", req.Input().Title)

	assert.Contains(t, validationDetails(t, PostRequest{Title: "x", Content: "y", Type: "BLOG"}.Validate()), "type")
}

func TestUserResponseOmitsSecrets(t *testing.T) {
	token := "verify-me"
	resp := NewUserResponse(&domain.User{ID: "1", Username: "alice", PasswordHash: "hash", VerificationToken: &token})
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"username":"alice"`)
	assert.NotContains(t, string(body), "hash")
	assert.NotContains(t, string(body), token)
}
