package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store over database/sql.
type Store struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, q: db, dialect: dialect}
}

// Open connects to Postgres (driver "pgx") or to an embedded SQLite file
// (driver "sqlite", dsn is the file path) and pings it.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect := Postgres
	if driver == SQLite.DriverName {
		dialect = SQLite
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", dsn)
	}

	conn, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// one writer connection; every transaction is serialized
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: ping: %w", dialect.Name, err)
	}
	return NewStore(conn, dialect), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Stock() domain.StockUnitRepository {
	return &StockUnitRepository{q: s.q, d: s.dialect}
}

func (s *Store) Reservations() domain.ReservationRepository {
	return &ReservationRepository{q: s.q, d: s.dialect}
}

func (s *Store) Carts() domain.CartRepository {
	return &CartRepository{q: s.q, d: s.dialect}
}

func (s *Store) Reference() domain.ReferenceRepository {
	return &ReferenceRepository{q: s.q, d: s.dialect}
}

func (s *Store) Payments() domain.PaymentRepository {
	return &PaymentRepository{q: s.q, d: s.dialect}
}

func (s *Store) Outbox() domain.OutboxRepository {
	return &OutboxRepository{q: s.q, d: s.dialect}
}

// InTx runs fn inside one transaction. Nested calls join the outer one.
func (s *Store) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx, dialect: s.dialect, inTx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// RawDB exposes the connection pool to fixture code.
func RawDB(s *Store) *sql.DB {
	return s.db
}
