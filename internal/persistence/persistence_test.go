package persistence

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/community-portal/internal/config"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, migrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, entry := range entries {
		body, err := fs.ReadFile(migrationFS, migrationsDir+"/"+entry.Name())
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", entry.Name())
		assert.Contains(t, string(body), "-- +goose Down", entry.Name())
	}
}

func TestTicketsReferenceUsers(t *testing.T) {
	body, err := fs.ReadFile(migrationFS, migrationsDir+"/00003_create_support_tickets.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "REFERENCES users (id) ON DELETE CASCADE"))
}

func TestOptionalBackends(t *testing.T) {
	logger := zap.NewNop()

	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()

	rdb := NewRedis(config.RedisConfig{}, logger)
	assert.Nil(t, rdb)
	assert.Error(t, rdb.Ping(context.Background()))
	rdb.Close()

	require.NoError(t, RunMigrations(context.Background(), nil, logger))
}
