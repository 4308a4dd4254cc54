// Package storage is the SQL ledger backend. The same repository serves
// SQLite (modernc, pure Go) and PostgreSQL (lib/pq); only placeholders and
// the schema differ between the two.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"budget/internal/core"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) the database file at dbPath and
// applies migrations.
func OpenSQLite(ctx context.Context, dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(ctx, DialectSQLite, dbPath)
}

// OpenPostgres connects to dsn and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Repository, error) {
	return open(ctx, DialectPostgres, dsn)
}

func open(ctx context.Context, dialect Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// one writer at a time; avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: dialect}, nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// createdAt is written as text on SQLite and as timestamptz on PostgreSQL.
func (r *Repository) createdAt(t time.Time) any {
	if r.dialect == DialectSQLite {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

// Insert implements ledger.Writer
func (r *Repository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	const q = `INSERT INTO transactions (id, user_id, title, amount, category, type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.rebind(q),
		tx.ID, tx.UserID, tx.Title, tx.Amount.String(), tx.Category, tx.Type.String(), r.createdAt(tx.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// ListByUser implements ledger.Lister
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	const q = `SELECT id, user_id, title, amount, category, type, created_at
FROM transactions WHERE user_id = ? ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, r.rebind(q), userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			tx      core.Transaction
			amount  string
			typ     string
			created timestamp
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Title, &amount, &tx.Category, &typ, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = core.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		if tx.Type, err = core.ParseTransactionType(typ); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		tx.CreatedAt = time.Time(created)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Delete implements ledger.Deleter
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	const q = `DELETE FROM transactions WHERE id = ? AND user_id = ?`
	if _, err := r.db.ExecContext(ctx, r.rebind(q), id, userID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// timestamp scans both driver representations of created_at.
type timestamp time.Time

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts = timestamp(v.UTC())
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("unsupported created_at type %T", src)
	}
	return nil
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	*ts = timestamp(t.UTC())
	return nil
}
