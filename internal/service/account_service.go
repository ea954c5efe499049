package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/config"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/mail"
	"github.com/spec-kit/community-portal/internal/observability"
	"github.com/spec-kit/community-portal/internal/repository"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// AccountService coordinates registration, verification, login and password flows.
type AccountService struct {
	store       repository.Store
	tokens      *auth.TokenIssuer
	mailer      mail.Sender
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
	baseURL     string
	bcryptCost  int
	resetTTL    time.Duration
	maxFailures int
	lockout     time.Duration
}

// AccountDependencies encapsulates collaborators for the account service.
type AccountDependencies struct {
	Store   repository.Store
	Tokens  *auth.TokenIssuer
	Mailer  mail.Sender
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Clock   func() time.Time
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	maxFailures := cfg.Auth.MaxFailedAttempts
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &AccountService{
		store:       deps.Store,
		tokens:      deps.Tokens,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
		logger:      loggerOrNop(deps.Logger),
		now:         clockOrNow(deps.Clock),
		baseURL:     cfg.App.BaseURL,
		bcryptCost:  cfg.Auth.BcryptCost,
		resetTTL:    cfg.Auth.ResetTTL(),
		maxFailures: maxFailures,
		lockout:     cfg.Auth.LockoutDuration(),
	}
}

// RegisterInput carries new account credentials.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AccountResult is a user plus any non-fatal delivery problems.
type AccountResult struct {
	User     *domain.User
	Warnings []string
}

// LoginResult carries the authenticated user and the issued token.
type LoginResult struct {
	User  *domain.User
	Token domain.Token
}

// Register creates a PENDING_VERIFICATION account and emails the verification link.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AccountResult, error) {
	user, err := s.createUser(ctx, in, func(u *domain.User) {
		token := uuid.NewString()
		u.Status = domain.AccountStatusPendingVerification
		u.VerificationToken = &token
	})
	if err != nil {
		return nil, err
	}

	warnings := s.send(ctx, "verification", mail.VerificationMessage(s.baseURL, user.Email, *user.VerificationToken))
	return &AccountResult{User: user, Warnings: warnings}, nil
}

// RegisterActive creates an ACTIVE, already verified account. Used by the form
// registration path, which skips email verification.
func (s *AccountService) RegisterActive(ctx context.Context, in RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, in, func(u *domain.User) {
		u.Status = domain.AccountStatusActive
		u.EmailVerified = true
	})
}

func (s *AccountService) createUser(ctx context.Context, in RegisterInput, init func(*domain.User)) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	init(user)

	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if taken, err := tx.Users().ExistsByUsername(ctx, username); err != nil {
			return err
		} else if taken {
			return apperrors.NewConflict("username already exists", map[string]any{"username": username})
		}
		if taken, err := tx.Users().ExistsByEmail(ctx, email); err != nil {
			return err
		} else if taken {
			return apperrors.NewConflict("email already exists", map[string]any{"email": email})
		}
		return tx.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered", zap.String("username", user.Username), zap.String("status", string(user.Status)))
	return user, nil
}

// VerifyEmail activates the account owning token. The token is single use.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.NewInvalidToken("invalid verification token")
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := tx.Users().GetByVerificationToken(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewInvalidToken("invalid verification token")
			}
			return err
		}
		if user, err = tx.Users().GetForUpdate(ctx, found.ID); err != nil {
			return err
		}
		user.EmailVerified = true
		user.Status = domain.AccountStatusActive
		user.VerificationToken = nil
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates by username or email and issues a bearer token.
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.checkCredentials(ctx, identifier, password, true)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token}, nil
}

// AuthenticateSession checks a username and password for the session login form.
// It applies the same lockout rules as Login.
func (s *AccountService) AuthenticateSession(ctx context.Context, username, password string) (*domain.User, error) {
	return s.checkCredentials(ctx, username, password, false)
}

// checkCredentials runs the lockout state machine in one transaction. A wrong
// password commits the incremented counter and then reports InvalidCredentials.
func (s *AccountService) checkCredentials(ctx context.Context, identifier, password string, allowEmail bool) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	var (
		user     *domain.User
		loginErr error
	)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := s.findLogin(ctx, tx, identifier, allowEmail)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				loginErr = apperrors.NewInvalidCredentials()
				return nil
			}
			return err
		}
		if user, err = tx.Users().GetForUpdate(ctx, found.ID); err != nil {
			return err
		}

		now := s.now()
		if user.IsLocked(now) {
			loginErr = apperrors.NewAccountLocked(map[string]any{"lockedUntil": user.LockedUntil.UTC()})
			return nil
		}
		if user.Status != domain.AccountStatusActive {
			loginErr = apperrors.NewAccountInactive()
			return nil
		}

		ok, err := auth.PasswordMatches(user.PasswordHash, password)
		if err != nil {
			return err
		}
		if !ok {
			user.FailedLoginAttempts++
			s.metrics.LoginFailed()
			if user.FailedLoginAttempts >= s.maxFailures {
				until := now.Add(s.lockout)
				user.LockedUntil = &until
				s.metrics.AccountLocked()
				s.logger.Warn("account locked",
					zap.String("username", user.Username),
					zap.Int("failed_attempts", user.FailedLoginAttempts),
					zap.Time("locked_until", until))
			}
			loginErr = apperrors.NewInvalidCredentials()
			return tx.Users().Update(ctx, user)
		}

		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.LastLogin = &now
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	if loginErr != nil {
		return nil, loginErr
	}
	return user, nil
}

func (s *AccountService) findLogin(ctx context.Context, tx repository.Store, identifier string, allowEmail bool) (*domain.User, error) {
	user, err := tx.Users().GetByUsername(ctx, identifier)
	if err == nil || !allowEmail || !errors.Is(err, repository.ErrNotFound) {
		return user, err
	}
	return tx.Users().GetByEmail(ctx, identifier)
}

// RequestPasswordReset stores a one hour reset token and emails the link.
// Unknown addresses fail with NotFound.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) ([]string, error) {
	email = strings.TrimSpace(email)
	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return notFound(err, "user")
		}
		if user, err = tx.Users().GetForUpdate(ctx, found.ID); err != nil {
			return err
		}
		token := uuid.NewString()
		expiry := s.now().Add(s.resetTTL)
		user.ResetToken = &token
		user.ResetTokenExpiry = &expiry
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	return s.send(ctx, "password_reset", mail.PasswordResetMessage(s.baseURL, user.Email, *user.ResetToken, s.resetTTL)), nil
}

// ResetPassword consumes a reset token.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.NewInvalidToken("invalid reset token")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := tx.Users().GetByResetToken(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewInvalidToken("invalid reset token")
			}
			return err
		}
		user, err := tx.Users().GetForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		if user.ResetTokenExpiry == nil || user.ResetTokenExpiry.Before(s.now()) {
			return apperrors.NewTokenExpired("reset token has expired")
		}
		user.PasswordHash = hash
		user.ResetToken = nil
		user.ResetTokenExpiry = nil
		return tx.Users().Update(ctx, user)
	})
}

// ChangePassword replaces the password after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, username, current, next, confirm string) error {
	if next != confirm {
		return apperrors.NewValidationError("passwords do not match", map[string]any{"confirmPassword": "must match newPassword"})
	}

	return s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			return notFound(err, "user")
		}
		user, err := tx.Users().GetForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		ok, err := auth.PasswordMatches(user.PasswordHash, current)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewValidationError("current password is incorrect", map[string]any{"currentPassword": "is incorrect"})
		}
		hash, err := auth.HashPassword(next, s.bcryptCost)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		return tx.Users().Update(ctx, user)
	})
}

// UpdateProfile changes the email. A new address must be verified again.
func (s *AccountService) UpdateProfile(ctx context.Context, username, newEmail string) (*AccountResult, error) {
	newEmail = strings.TrimSpace(newEmail)
	var (
		user    *domain.User
		changed bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := tx.Users().GetByUsername(ctx, username)
		if err != nil {
			return notFound(err, "user")
		}
		if user, err = tx.Users().GetForUpdate(ctx, found.ID); err != nil {
			return err
		}
		if newEmail == user.Email {
			return nil
		}

		owner, err := tx.Users().GetByEmail(ctx, newEmail)
		switch {
		case err == nil && owner.ID != user.ID:
			return apperrors.NewConflict("email already exists", map[string]any{"email": newEmail})
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}

		token := uuid.NewString()
		user.Email = newEmail
		user.EmailVerified = false
		user.VerificationToken = &token
		changed = true
		return tx.Users().Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	result := &AccountResult{User: user}
	if changed {
		result.Warnings = s.send(ctx, "verification", mail.VerificationMessage(s.baseURL, user.Email, *user.VerificationToken))
	}
	return result, nil
}

// GetProfile loads an account by username.
func (s *AccountService) GetProfile(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// GetUserByID loads an account by id.
func (s *AccountService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// ValidateToken checks a bearer token and returns the profile of its subject.
func (s *AccountService) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	if !s.tokens.Validate(token) {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	claims, err := s.tokens.Claims(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	return s.GetProfile(ctx, claims.Subject)
}

// PromoteBootstrapAdmin raises the named account from USER to ADMIN. It reports
// whether a change was made; a missing account is not an error.
func (s *AccountService) PromoteBootstrapAdmin(ctx context.Context, username string) (bool, error) {
	promoted := false
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		found, err := tx.Users().GetByUsername(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		user, err := tx.Users().GetForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		if user.Role != domain.RoleUser {
			return nil
		}
		user.Role = domain.RoleAdmin
		promoted = true
		return tx.Users().Update(ctx, user)
	})
	if promoted {
		s.logger.Info("bootstrap admin promoted", zap.String("username", username))
	}
	return promoted, err
}

// send delivers msg and turns a failure into a warning for the caller.
func (s *AccountService) send(ctx context.Context, kind string, msg mail.Message) []string {
	if s.mailer == nil {
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.EmailFailed(kind)
		s.logger.Warn("email delivery failed",
			zap.String("kind", kind),
			zap.String("to", msg.To),
			zap.Error(err))
		return []string{kind + " email could not be sent"}
	}
	return nil
}
