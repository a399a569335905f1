package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"adboard-backend/internal/domain"
	"adboard-backend/internal/logger"
	"adboard-backend/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	db    *sql.DB
	repos repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repos: newRepositories(db)}
}

func newRepositories(q querier) repository.Repositories {
	return repository.Repositories{
		Accounts:   NewAccountRepository(q),
		Ledger:     NewLedgerRepository(q),
		Ads:        NewAdRepository(q),
		Extensions: NewExtensionRepository(q),
		Channels:   NewChannelRepository(q),
		Sales:      NewSaleRepository(q),
		Funding:    NewFundingRepository(q),
		Reposts:    NewRepostRepository(q),
	}
}

// Repos returns repositories running outside any transaction.
func (s *Store) Repos() repository.Repositories {
	return s.repos
}

func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.DatabaseResult("commit", 0, err)
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// TryLock takes a session-level advisory lock on a dedicated connection, so
// the lock is shared by every process using the database. The connection is
// held until unlock.
func (s *Store) TryLock(ctx context.Context, name string) (func(), bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock connection: %w", err)
	}
	var ok bool
	logger.DatabaseCall("select", "advisory lock", "name", name)
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&ok); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("try advisory lock %q: %w", name, err)
	}
	if !ok {
		conn.Close()
		return nil, false, nil
	}

	unlock := func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, name); err != nil {
			logger.Warn("Advisory unlock failed; discarding connection", "name", name, "error", err)
			// A session lock dies with its connection.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		conn.Close()
	}
	return unlock, true, nil
}

// notFound maps sql.ErrNoRows to domain.ErrNotFound.
func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return err
}

func changed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
