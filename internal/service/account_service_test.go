package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/community-portal/internal/domain"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

func TestRegisterVerifyLoginValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.accounts.Register(ctx, RegisterInput{Username: "alice", Email: "alice@gmail.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.AccountStatusPendingVerification, res.User.Status)
	assert.False(t, res.User.EmailVerified)
	require.NotNil(t, res.User.VerificationToken)

	msg, ok := env.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "alice@gmail.com", msg.To)
	assert.Contains(t, msg.Body, *res.User.VerificationToken)

	_, err = env.accounts.Login(ctx, "alice", "secret123")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAccountInactive))

	verified, err := env.accounts.VerifyEmail(ctx, *res.User.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, verified.Status)
	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.VerificationToken)

	login, err := env.accounts.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", login.Token.Type)
	require.NotNil(t, login.User.LastLogin)

	profile, err := env.accounts.ValidateToken(ctx, login.Token.Value)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, domain.RoleUser, profile.Role)
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.accounts.Register(ctx, RegisterInput{Username: "bob", Email: "bob@gmail.com", Password: "secret123"})
	require.NoError(t, err)
	token := *res.User.VerificationToken

	_, err = env.accounts.VerifyEmail(ctx, token)
	require.NoError(t, err)
	_, err = env.accounts.VerifyEmail(ctx, token)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Register(ctx, RegisterInput{Username: "alice", Email: "alice@gmail.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = env.accounts.Register(ctx, RegisterInput{Username: "alice", Email: "other@gmail.com", Password: "secret123"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = env.accounts.Register(ctx, RegisterInput{Username: "alice2", Email: "alice@gmail.com", Password: "secret123"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestLoginLocksAfterFiveFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "carol", domain.RoleUser)

	for i := 0; i < 5; i++ {
		_, err := env.accounts.Login(ctx, "carol", "wrong")
		require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCredentials), "attempt %d: %v", i+1, err)
	}

	_, err := env.accounts.Login(ctx, "carol", "password1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAccountLocked))

	env.clock.Advance(29 * time.Minute)
	_, err = env.accounts.Login(ctx, "carol", "password1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAccountLocked))

	env.clock.Advance(2 * time.Minute)
	res, err := env.accounts.Login(ctx, "carol", "password1")
	require.NoError(t, err)
	assert.Zero(t, res.User.FailedLoginAttempts)
	assert.Nil(t, res.User.LockedUntil)
}

func TestAdminUnlockRestoresLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.activeUser(t, "dave", domain.RoleUser)

	for i := 0; i < 5; i++ {
		_, _ = env.accounts.Login(ctx, "dave", "wrong")
	}
	_, err := env.accounts.Login(ctx, "dave", "password1")
	require.True(t, apperrors.IsCode(err, apperrors.CodeAccountLocked))

	unlocked, err := env.admin.UnlockUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, unlocked.LockedUntil)
	assert.Zero(t, unlocked.FailedLoginAttempts)

	_, err = env.accounts.Login(ctx, "dave", "password1")
	require.NoError(t, err)
}

func TestConcurrentFailedLoginsAreNotLost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "erin", domain.RoleUser)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.accounts.Login(ctx, "erin", "wrong")
		}()
	}
	wg.Wait()

	user, err := env.accounts.GetProfile(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, 5, user.FailedLoginAttempts)
	assert.NotNil(t, user.LockedUntil)
}

func TestLoginAcceptsEmailAndRejectsUnknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "frank", domain.RoleUser)

	_, err := env.accounts.Login(ctx, "frank@gmail.com", "password1")
	require.NoError(t, err)

	_, err = env.accounts.Login(ctx, "nobody", "password1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCredentials))
}

func TestSessionAuthenticationSharesLockout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "gina", domain.RoleUser)

	user, err := env.accounts.AuthenticateSession(ctx, "gina", "password1")
	require.NoError(t, err)
	assert.Equal(t, "gina", user.Username)

	_, err = env.accounts.AuthenticateSession(ctx, "gina@gmail.com", "password1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCredentials))

	for i := 0; i < 5; i++ {
		_, _ = env.accounts.AuthenticateSession(ctx, "gina", "bad")
	}
	_, err = env.accounts.Login(ctx, "gina", "password1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAccountLocked))
}

func TestResetPasswordFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "hank", domain.RoleUser)

	warnings, err := env.accounts.RequestPasswordReset(ctx, "hank@gmail.com")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	msg, ok := env.mailer.Last()
	require.True(t, ok)
	assert.Contains(t, msg.Body, "expire in 1 hour")
	token := tokenFromLink(t, msg.Body, "/reset-password?token=")

	env.clock.Advance(59 * time.Minute)
	require.NoError(t, env.accounts.ResetPassword(ctx, token, "newpassword"))

	_, err = env.accounts.Login(ctx, "hank", "newpassword")
	require.NoError(t, err)

	err = env.accounts.ResetPassword(ctx, token, "another1")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "iris", domain.RoleUser)

	_, err := env.accounts.RequestPasswordReset(ctx, "iris@gmail.com")
	require.NoError(t, err)
	msg, _ := env.mailer.Last()
	token := tokenFromLink(t, msg.Body, "/reset-password?token=")

	env.clock.Advance(time.Hour + time.Second)
	err = env.accounts.ResetPassword(ctx, token, "newpassword")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTokenExpired))

	_, err = env.accounts.Login(ctx, "iris", "password1")
	require.NoError(t, err)
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.RequestPasswordReset(context.Background(), "ghost@gmail.com")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestEmailFailureIsReportedAsWarning(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.Err = errors.New("smtp unavailable")
	ctx := context.Background()

	res, err := env.accounts.Register(ctx, RegisterInput{Username: "jack", Email: "jack@gmail.com", Password: "secret123"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)

	stored, err := env.accounts.GetProfile(ctx, "jack")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, stored.ID)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "kate", domain.RoleUser)

	err := env.accounts.ChangePassword(ctx, "kate", "password1", "newpassword", "different")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	err = env.accounts.ChangePassword(ctx, "kate", "wrong", "newpassword", "newpassword")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	require.NoError(t, env.accounts.ChangePassword(ctx, "kate", "password1", "newpassword", "newpassword"))
	_, err = env.accounts.Login(ctx, "kate", "newpassword")
	require.NoError(t, err)
}

func TestUpdateProfileForcesReverification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.activeUser(t, "liam", domain.RoleUser)
	env.activeUser(t, "mona", domain.RoleUser)

	_, err := env.accounts.UpdateProfile(ctx, "liam", "mona@gmail.com")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	res, err := env.accounts.UpdateProfile(ctx, "liam", "liam.new@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "liam.new@gmail.com", res.User.Email)
	assert.False(t, res.User.EmailVerified)
	require.NotNil(t, res.User.VerificationToken)

	msg, ok := env.mailer.Last()
	require.True(t, ok)
	assert.Equal(t, "liam.new@gmail.com", msg.To)

	sent := len(env.mailer.Sent())
	res, err = env.accounts.UpdateProfile(ctx, "liam", "liam.new@gmail.com")
	require.NoError(t, err)
	assert.Len(t, env.mailer.Sent(), sent)
	assert.Empty(t, res.Warnings)
}

func TestPromoteBootstrapAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	promoted, err := env.accounts.PromoteBootstrapAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, promoted)

	core, logs := observer.New(zap.InfoLevel)
	env.accounts.logger = zap.New(core)

	env.activeUser(t, "admin", domain.RoleUser)
	promoted, err = env.accounts.PromoteBootstrapAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, promoted)
	assert.Equal(t, 1, logs.FilterMessage("bootstrap admin promoted").Len())

	user, err := env.accounts.GetProfile(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	promoted, err = env.accounts.PromoteBootstrapAdmin(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, promoted)
}

func tokenFromLink(t *testing.T, body, marker string) string {
	t.Helper()
	idx := strings.Index(body, marker)
	require.GreaterOrEqual(t, idx, 0, "link %q not found in %q", marker, body)
	rest := body[idx+len(marker):]
	if end := strings.IndexAny(rest, " \r\n"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
