package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/community-portal/internal/domain"
)

var ticketColumnNames = []string{
	"id", "user_id", "username", "subject", "description", "status", "priority", "category",
	"assigned_to_id", "assignee", "created_at", "updated_at", "resolved_at",
}

func ticketRow(id string, assignee *string, created time.Time) []any {
	return []any{
		id, "u-1", "alice", "Cannot log in", "details", domain.TicketStatusOpen, domain.TicketPriorityHigh, "account",
		assignee, nil, created, created, nil,
	}
}

func TestTicketGetForUpdateLocksOnlyTicketRow(t *testing.T) {
	mock, store, sent := newMockStore(t)
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE t.id=\$1 FOR UPDATE OF t$`).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows(ticketColumnNames).AddRow(ticketRow("t-1", nil, created)...))

	ticket, err := store.Tickets().GetForUpdate(context.Background(), "t-1")
	require.NoError(t, err)

	assert.Equal(t, "alice", ticket.Username)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Nil(t, ticket.AssignedToID)
	assert.Contains(t, lastSQL(t, sent), "FOR UPDATE OF t")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketListPlaceholdersWithFiltersAndPaging(t *testing.T) {
	mock, store, sent := newMockStore(t)
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	staff := "s-1"
	columns := append(append([]string{}, ticketColumnNames...), "count")
	mock.ExpectQuery(`FROM support_tickets t`).
		WithArgs("u-1", domain.TicketStatusOpen, 25, 50).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(append(ticketRow("t-7", &staff, created), 51)...))

	user := "u-1"
	status := domain.TicketStatusOpen
	tickets, total, err := store.Tickets().ListWithFilter(context.Background(), TicketFilter{
		UserID: &user,
		Status: &status,
		Limit:  25,
		Offset: 50,
	})
	require.NoError(t, err)

	require.Len(t, tickets, 1)
	assert.Equal(t, 51, total)
	require.NotNil(t, tickets[0].AssignedToID)
	assert.Equal(t, "s-1", *tickets[0].AssignedToID)

	sql := lastSQL(t, sent)
	assert.Contains(t, sql, "t.user_id = $1 AND t.status = $2")
	assert.Contains(t, sql, "ORDER BY t.created_at DESC, t.id LIMIT $3 OFFSET $4")
	assert.NoError(t, mock.ExpectationsWereMet())
}
