package db

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
)

// Dialect captures the few SQL differences between the Postgres and the
// embedded SQLite backends. Queries are written with '?' placeholders.
type Dialect struct {
	Name       string
	DriverName string
	forUpdate  string
	types      *strings.Replacer
	numbered   bool

	// reseedSerials is set where explicit ids do not advance the sequence.
	reseedSerials bool
}

var Postgres = Dialect{
	Name:       "postgres",
	DriverName: "pgx",
	forUpdate:  " for update",
	types: strings.NewReplacer(
		"{{uuid}}", "uuid",
		"{{money}}", "numeric(14,4)",
		"{{serial}}", "bigserial primary key",
	),
	numbered:      true,
	reseedSerials: true,
}

var SQLite = Dialect{
	Name:       "sqlite",
	DriverName: "sqlite",
	types: strings.NewReplacer(
		"{{uuid}}", "text",
		"{{money}}", "text",
		"{{serial}}", "integer primary key autoincrement",
	),
}

// rebind rewrites '?' placeholders into $n for Postgres.
func (d Dialect) rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// locking appends the row-lock clause where the backend supports one. SQLite
// runs on a single connection, so its transactions are already serialized.
func (d Dialect) locking(q string) string {
	return d.rebind(q + d.forUpdate)
}

// classify maps constraint violations onto domain errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514": // check_violation
			return errors.Join(domain.ErrInsufficientInventory, err)
		case "23505": // unique_violation
			return errors.Join(domain.ErrDuplicateWebhookDelivery, err)
		}
		return err
	}
	if strings.Contains(err.Error(), "CHECK constraint failed") {
		return errors.Join(domain.ErrInsufficientInventory, err)
	}
	return err
}
