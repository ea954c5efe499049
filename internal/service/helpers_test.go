package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/config"
	"github.com/spec-kit/community-portal/internal/domain"
	"github.com/spec-kit/community-portal/internal/events"
	"github.com/spec-kit/community-portal/internal/mail"
	"github.com/spec-kit/community-portal/internal/observability"
	"github.com/spec-kit/community-portal/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	clock      *fakeClock
	store      *memory.Store
	mailer     *mail.Recorder
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	tokens     *auth.TokenIssuer

	accounts *AccountService
	news     *NewsService
	tickets  *TicketService
	admin    *AdminService
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{BaseURL: "http://portal.test"},
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 60,
			BcryptCost:              bcrypt.MinCost,
			MaxFailedAttempts:       5,
			LockoutMinutes:          30,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	clock := newFakeClock()
	env := &testEnv{
		clock:      clock,
		store:      memory.New().WithClock(clock.Now),
		mailer:     &mail.Recorder{},
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    observability.NewMetrics(),
		tokens:     auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
	}
	env.accounts = NewAccountService(cfg, AccountDependencies{
		Store:   env.store,
		Tokens:  env.tokens,
		Mailer:  env.mailer,
		Metrics: env.metrics,
		Clock:   clock.Now,
	})
	env.news = NewNewsService(NewsDependencies{
		Store:      env.store,
		Dispatcher: env.dispatcher,
		Metrics:    env.metrics,
		Clock:      clock.Now,
	})
	env.tickets = NewTicketService(TicketDependencies{
		Store:      env.store,
		Dispatcher: env.dispatcher,
		Clock:      clock.Now,
	})
	env.admin = NewAdminService(env.store, nil)
	return env
}

// activeUser registers an ACTIVE account with password "password1".
func (e *testEnv) activeUser(t *testing.T, username string, role domain.Role) *domain.User {
	t.Helper()
	ctx := context.Background()
	user, err := e.accounts.RegisterActive(ctx, RegisterInput{
		Username: username,
		Email:    username + "@gmail.com",
		Password: "password1",
	})
	require.NoError(t, err)
	if role != domain.RoleUser {
		user, err = e.admin.UpdateUserRole(ctx, user.ID, role)
		require.NoError(t, err)
	}
	return user
}
