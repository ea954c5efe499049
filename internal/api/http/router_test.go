package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/community-portal/internal/api/http/handlers"
	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/config"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/mail"
	"github.com/spec-kit/community-portal/internal/observability"
	"github.com/spec-kit/community-portal/internal/repository/memory"
	"github.com/spec-kit/community-portal/internal/service"
)

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
	Error    *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app      *fiber.App
	mailer   *mail.Recorder
	accounts *service.AccountService
	admin    *service.AdminService
	tokens   *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Config{
		App: config.AppConfig{BaseURL: "http://portal.test"},
		Auth: config.AuthConfig{
			JWTSecret:               "router-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 60,
			BcryptCost:              bcrypt.MinCost,
			MaxFailedAttempts:       5,
			LockoutMinutes:          30,
		},
	}
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.New()
	mailer := &mail.Recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	sessions := session.New()

	accounts := service.NewAccountService(cfg, service.AccountDependencies{
		Store: store, Tokens: tokens, Mailer: mailer, Metrics: metrics, Logger: logger,
	})
	news := service.NewNewsService(service.NewsDependencies{
		Store: store, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store: store, Dispatcher: dispatcher, Logger: logger,
	})
	admin := service.NewAdminService(store, logger)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:        handlers.NewHealthHandler("community-portal", "test", nil, nil),
		Auth:          handlers.NewAuthHandler(accounts),
		Users:         handlers.NewUsersHandler(accounts),
		Admin:         handlers.NewAdminHandler(admin),
		News:          handlers.NewNewsHandler(news),
		Support:       handlers.NewSupportHandler(tickets),
		Pages:         handlers.NewPagesHandler(sessions, accounts, news, tickets, admin),
		Authenticator: auth.NewAuthenticator(sessions, tokens, store.Users(), auth.DefaultSessionOnlyPaths(), logger),
		Metrics:       metrics,
	})

	return &testServer{app: app, mailer: mailer, accounts: accounts, admin: admin, tokens: tokens}
}

type call struct {
	method  string
	path    string
	body    any
	bearer  string
	headers map[string]string
	cookies []string
}

func (s *testServer) do(t *testing.T, c call) (int, envelope, []string) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	if c.body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if c.bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.bearer)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, cookie := range c.cookies {
		req.Header.Add(fiber.HeaderCookie, cookie)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &env))
	}

	var cookies []string
	for _, ck := range resp.Cookies() {
		cookies = append(cookies, ck.Name+"="+ck.Value)
	}
	return resp.StatusCode, env, cookies
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// user creates an active account holding role and returns a bearer token for it.
func (s *testServer) user(t *testing.T, username string, role domain.Role) string {
	t.Helper()
	ctx := context.Background()
	u, err := s.accounts.RegisterActive(ctx, service.RegisterInput{
		Username: username, Email: username + "@gmail.com", Password: "password1",
	})
	require.NoError(t, err)
	if role != domain.RoleUser {
		u, err = s.admin.UpdateUserRole(ctx, u.ID, role)
		require.NoError(t, err)
	}
	token, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return token.Value
}

func (s *testServer) sessionFor(t *testing.T, username string) []string {
	t.Helper()
	status, _, cookies := s.do(t, call{
		method: fiber.MethodPost, path: "/login",
		body: map[string]string{"username": username, "password": "password1"},
	})
	require.Equal(t, fiber.StatusOK, status)
	require.NotEmpty(t, cookies)
	return cookies
}

func TestRegisterVerifyLoginValidate(t *testing.T) {
	s := newTestServer(t)

	status, env, _ := s.do(t, call{method: fiber.MethodPost, path: "/api/auth/register", body: map[string]string{
		"username": "alice", "email": "alice@gmail.com", "password": "secret123", "confirmPassword": "secret123",
	}})
	require.Equal(t, fiber.StatusOK, status)
	registered := decode[map[string]any](t, env)
	assert.Equal(t, "PENDING_VERIFICATION", registered["status"])
	assert.NotContains(t, registered, "password")

	msg, ok := s.mailer.Last()
	require.True(t, ok)
	marker := "/api/auth/verify?token="
	token := msg.Body[strings.Index(msg.Body, marker)+len(marker):]

	status, env, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/auth/verify?token=" + token})
	require.Equal(t, fiber.StatusOK, status)
	verified := decode[map[string]any](t, env)
	assert.Equal(t, "ACTIVE", verified["status"])
	assert.Equal(t, true, verified["emailVerified"])

	status, env, _ = s.do(t, call{method: fiber.MethodPost, path: "/api/auth/login", body: map[string]string{
		"usernameOrEmail": "alice", "password": "secret123",
	}})
	require.Equal(t, fiber.StatusOK, status)
	login := decode[map[string]any](t, env)
	assert.Equal(t, "Bearer", login["tokenType"])
	bearer, _ := login["token"].(string)
	require.NotEmpty(t, bearer)

	status, env, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/auth/validate", bearer: bearer})
	require.Equal(t, fiber.StatusOK, status)
	profile := decode[map[string]any](t, env)
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, "USER", profile["role"])

	status, env, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/auth/validate",
		headers: map[string]string{fiber.HeaderAuthorization: "bearer " + bearer}})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alice", decode[map[string]any](t, env)["username"])
}

func TestRegisterValidationAndConflict(t *testing.T) {
	s := newTestServer(t)

	status, env, _ := s.do(t, call{method: fiber.MethodPost, path: "/api/auth/register", body: map[string]string{
		"username": "al", "email": "not-an-email", "password": "short", "confirmPassword": "other",
	}})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "username")
	assert.Contains(t, env.Error.Details, "confirmPassword")

	s.user(t, "bob", domain.RoleUser)
	status, env, _ = s.do(t, call{method: fiber.MethodPost, path: "/api/auth/register", body: map[string]string{
		"username": "bob", "email": "other@gmail.com", "password": "password1", "confirmPassword": "password1",
	}})
	require.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestAuthorizationOutcomes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.user(t, "carol", domain.RoleUser)
	superToken := s.user(t, "root", domain.RoleSuperAdmin)

	status, env, _ := s.do(t, call{method: fiber.MethodGet, path: "/api/users/profile"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, env, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/admin/users", bearer: userToken})
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/admin/users", bearer: superToken})
	require.Equal(t, fiber.StatusOK, status)
	page := decode[map[string]any](t, env)
	assert.EqualValues(t, 2, page["total"])

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/news/carousel"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestSessionOnlyPathsIgnoreBearer(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.user(t, "boss", domain.RoleAdmin)

	status, _, _ := s.do(t, call{method: fiber.MethodPost, path: "/api/news", bearer: adminToken,
		body: map[string]any{"title": "Hello", "content": "World", "type": "NEWS"}})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/home", bearer: adminToken})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	cookies := s.sessionFor(t, "boss")
	status, env, _ := s.do(t, call{method: fiber.MethodPost, path: "/api/news", cookies: cookies,
		body: map[string]any{"title": "Hello", "content": "World", "type": "NEWS", "status": "PUBLISHED"}})
	require.Equal(t, fiber.StatusCreated, status)
	post := decode[map[string]any](t, env)
	assert.Equal(t, "DRAFT", post["status"])

	status, env, _ = s.do(t, call{method: fiber.MethodGet, path: "/home", cookies: cookies})
	require.Equal(t, fiber.StatusOK, status)
	home := decode[map[string]any](t, env)
	assert.Equal(t, "boss", home["username"])
	assert.Equal(t, true, home["isAdmin"])
	assert.Equal(t, true, home["isStaff"])
}

func TestFormRegisterLoginLogout(t *testing.T) {
	s := newTestServer(t)

	status, env, _ := s.do(t, call{method: fiber.MethodPost, path: "/register", body: map[string]string{
		"username": "dave", "email": "dave@yahoo.com", "password": "password1", "confirmPassword": "password1",
	}})
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, env.Error.Details, "email")

	status, env, _ = s.do(t, call{method: fiber.MethodPost, path: "/register", body: map[string]string{
		"username": "dave", "email": "dave@gmail.com", "password": "password1", "confirmPassword": "password1",
	}})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "ACTIVE", decode[map[string]any](t, env)["status"])

	cookies := s.sessionFor(t, "dave")

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/profile", cookies: cookies})
	require.Equal(t, fiber.StatusOK, status)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/staff", cookies: cookies})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/logout", cookies: cookies})
	require.Equal(t, fiber.StatusOK, status)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/profile", cookies: cookies})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestTicketOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "erin", domain.RoleUser)
	other := s.user(t, "frank", domain.RoleUser)
	staff := s.user(t, "sam", domain.RoleSupportStaff)

	status, env, _ := s.do(t, call{method: fiber.MethodPost, path: "/api/support/tickets", bearer: owner,
		body: map[string]string{"subject": "Cannot log in", "description": "Help", "category": "ACCOUNT"}})
	require.Equal(t, fiber.StatusCreated, status)
	ticket := decode[map[string]any](t, env)
	assert.Equal(t, "MEDIUM", ticket["priority"])
	id, _ := ticket["id"].(string)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/support/tickets/" + id, bearer: other})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/api/support/staff/tickets", bearer: owner})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env, _ = s.do(t, call{method: fiber.MethodPost, path: "/api/support/staff/tickets/" + id + "/assign", bearer: staff,
		body: map[string]string{"staffUsername": "sam"}})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "IN_PROGRESS", decode[map[string]any](t, env)["status"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, _, _ := s.do(t, call{method: fiber.MethodGet, path: "/health/ready"})
	assert.Equal(t, fiber.StatusOK, status)

	status, _, _ = s.do(t, call{method: fiber.MethodGet, path: "/metrics"})
	assert.Equal(t, fiber.StatusOK, status)

	status, env, _ := s.do(t, call{method: fiber.MethodGet, path: "/api/unknown"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}
