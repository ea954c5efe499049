package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/domain"
	apperrors "github.com/spec-kit/community-portal/pkg/util"
)

// SessionUsernameKey is the session entry holding the logged in username.
const SessionUsernameKey = "username"

// UserFinder loads accounts for session resolution.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Authenticator resolves the request identity from the session or a bearer token.
type Authenticator struct {
	sessions    *session.Store
	tokens      *TokenIssuer
	users       UserFinder
	sessionOnly []string
	logger      *zap.Logger
}

// NewAuthenticator constructs the middleware. Paths under sessionOnly never
// consult the Authorization header.
func NewAuthenticator(sessions *session.Store, tokens *TokenIssuer, users UserFinder, sessionOnly []string, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		sessions:    sessions,
		tokens:      tokens,
		users:       users,
		sessionOnly: sessionOnly,
		logger:      logger,
	}
}

// DefaultSessionOnlyPaths are served to session holders only.
func DefaultSessionOnlyPaths() []string {
	return []string{"/api/news", "/admin", "/staff", "/home", "/profile", "/logout"}
}

// Handle installs the identity into the request context. It never rejects a
// request; Authorize decides what anonymous callers may reach.
func (a *Authenticator) Handle(c *fiber.Ctx) error {
	id, ok, err := a.fromSession(c)
	if err != nil {
		return err
	}
	if !ok && !a.isSessionOnly(c.Path()) {
		id, ok = a.fromBearer(c.Get(fiber.HeaderAuthorization))
	}
	if ok {
		c.SetUserContext(ContextWithIdentity(c.UserContext(), id))
	}
	return c.Next()
}

func (a *Authenticator) fromSession(c *fiber.Ctx) (Identity, bool, error) {
	if a.sessions == nil {
		return Identity{}, false, nil
	}
	sess, err := a.sessions.Get(c)
	if err != nil {
		return Identity{}, false, apperrors.NewInternalError(err)
	}
	if sess.Fresh() {
		return Identity{}, false, nil
	}
	username, _ := sess.Get(SessionUsernameKey).(string)
	if username == "" {
		return Identity{}, false, nil
	}

	user, err := a.users.GetByUsername(c.UserContext(), username)
	if err != nil {
		if apperrors.IsCode(apperrors.ToDomainError(err), apperrors.CodeNotFound) {
			return Identity{}, false, nil
		}
		return Identity{}, false, err
	}
	if user.Status != domain.AccountStatusActive {
		return Identity{}, false, nil
	}

	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Source:   domain.AuthSourceSession,
	}, true, nil
}

// fromBearer trusts the claims of a valid token; the identity is not persisted.
func (a *Authenticator) fromBearer(header string) (Identity, bool) {
	token, ok := BearerToken(header)
	if !ok || a.tokens == nil {
		return Identity{}, false
	}
	claims, err := a.tokens.Claims(token)
	if err != nil {
		a.logger.Debug("bearer token rejected", zap.Error(err))
		return Identity{}, false
	}
	return Identity{
		UserID:   claims.UserID,
		Username: claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
		Source:   domain.AuthSourceToken,
	}, true
}

func (a *Authenticator) isSessionOnly(path string) bool {
	for _, prefix := range a.sessionOnly {
		if matchPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from an Authorization header. The scheme is
// matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], tokenType) {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
