package dto

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/spec-kit/community-portal/internal/domain"
)

var (
	formUsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	formEmailPattern    = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
)

const formEmailDomain = "@gmail.com"

// RegisterRequest payload for POST /api/auth/register.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r RegisterRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 20)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(r.Password))),
	))
}

// LoginRequest payload for POST /api/auth/login. Identifier is a username or email.
type LoginRequest struct {
	Identifier string `json:"usernameOrEmail"`
	Password   string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewTokenResponse maps an issued token.
func NewTokenResponse(token domain.Token) TokenResponse {
	return TokenResponse{Token: token.Value, TokenType: token.Type, ExpiresAt: token.ExpiresAt}
}

// ForgotPasswordRequest payload for POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	))
}

// ResetPasswordRequest payload for POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	))
}

// ChangePasswordRequest payload for password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// Validate checks presence and length. The confirm match is left to the service
// so both surfaces report it the same way.
func (r ChangePasswordRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	))
}

// UpdateProfileRequest payload for PUT /api/users/profile.
type UpdateProfileRequest struct {
	Email string `json:"email" form:"email"`
}

func (r UpdateProfileRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	))
}

// ValidateForm applies the stricter rules of the profile form.
func (r UpdateProfileRequest) ValidateForm() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Match(formEmailPattern), validation.By(gmailOnly)),
	))
}

// FormRegisterRequest is the simplified registration form.
type FormRegisterRequest struct {
	Username        string `json:"username" form:"username"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

func (r FormRegisterRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Match(formUsernamePattern).Error("must be 3-20 letters, digits or underscores")),
		validation.Field(&r.Email, validation.Required, validation.Match(formEmailPattern), validation.By(gmailOnly)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(ValidateStringEquals(r.Password))),
	))
}

// FormLoginRequest is the session login form.
type FormLoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r FormLoginRequest) Validate() error {
	return asValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

func gmailOnly(value any) error {
	s, _ := value.(string)
	if s != "" && !strings.HasSuffix(strings.ToLower(s), formEmailDomain) {
		return errors.New("must be a gmail.com address")
	}
	return nil
}
