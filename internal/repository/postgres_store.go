package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txBeginner is the part of *pgxpool.Pool the store needs.
type txBeginner interface {
	DBTX
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PostgresStore is the pgx backed Store.
type PostgresStore struct {
	conn txBeginner
	db   DBTX
}

// NewPostgresStore binds repositories to the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		return &PostgresStore{}
	}
	return newPostgresStore(pool)
}

func newPostgresStore(conn txBeginner) *PostgresStore {
	return &PostgresStore{conn: conn, db: conn}
}

func (s *PostgresStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

func (s *PostgresStore) Posts() PostRepository {
	return &postRepository{db: s.db}
}

func (s *PostgresStore) Tickets() TicketRepository {
	return &ticketRepository{db: s.db}
}

// WithTx commits on success and rolls back on error or panic. Panics are rethrown.
// Calls made on a transactional view join the open transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	if s.conn == nil {
		if s.db == nil {
			return errors.New("postgres store not configured")
		}
		return fn(ctx, s)
	}

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	err = fn(ctx, &PostgresStore{db: tx})
	return err
}
