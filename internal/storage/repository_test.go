package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
)

func newSQLite(t *testing.T) *Repository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func record(t *testing.T, id, user, title, amount string, typ core.TransactionType, at time.Time) core.Transaction {
	t.Helper()
	a, err := core.ParseAmount(amount)
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	return core.Transaction{ID: id, UserID: user, Title: title, Amount: a, Category: "misc", Type: typ, CreatedAt: at}
}

func exerciseRepository(t *testing.T, repo *Repository) {
	ctx := context.Background()
	base := time.Date(2025, 1, 10, 8, 30, 0, 123456000, time.UTC)

	inserts := []core.Transaction{
		record(t, "a1", "alice", "Salary", "2500.00", core.Income, base),
		record(t, "b1", "bob", "Rent", "900", core.Expense, base.Add(time.Minute)),
		record(t, "a2", "alice", "Coffee", "0.1", core.Expense, base.Add(2*time.Minute)),
		record(t, "a3", "alice", "Snack", "0.2", core.Expense, base.Add(3*time.Minute)),
	}
	for _, tx := range inserts {
		if _, err := repo.Insert(ctx, tx); err != nil {
			t.Fatalf("Insert(%s): %v", tx.ID, err)
		}
	}

	if _, err := repo.Insert(ctx, inserts[0]); err == nil {
		t.Fatal("expected duplicate id to be rejected")
	}

	got, err := repo.ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 3 || got[0].ID != "a1" || got[1].ID != "a2" || got[2].ID != "a3" {
		t.Fatalf("expected alice's records in insertion order, got %+v", got)
	}
	if !got[0].CreatedAt.Equal(base) {
		t.Errorf("created_at round trip: got %v want %v", got[0].CreatedAt, base)
	}
	if got[0].Type != core.Income || got[0].Category != "misc" {
		t.Errorf("unexpected record %+v", got[0])
	}

	totals := core.ComputeTotals(got)
	if want, _ := core.ParseAmount("2499.7"); !totals.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", totals.Balance, want)
	}

	// foreign and unknown deletes are no-ops
	if err := repo.Delete(ctx, "bob", "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "alice", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.ListByUser(ctx, "alice"); len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}

	if err := repo.Delete(ctx, "alice", "a2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = repo.ListByUser(ctx, "alice")
	if len(got) != 2 || got[1].ID != "a3" {
		t.Fatalf("unexpected records after delete %+v", got)
	}

	if empty, err := repo.ListByUser(ctx, "carol"); err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v %v", empty, err)
	}
}

func TestSQLiteRepository(t *testing.T) {
	exerciseRepository(t, newSQLite(t))
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	for i := 0; i < 2; i++ {
		repo, err := OpenSQLite(context.Background(), path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set, skipping postgres test")
	}
	repo, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer repo.Close()
	repo.db.Exec("DELETE FROM transactions")
	exerciseRepository(t, repo)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{DialectSQLite, "a = ? AND b = ?", "a = ? AND b = ?"},
		{DialectPostgres, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{DialectPostgres, "no params", "no params"},
	}
	for _, tt := range tests {
		r := &Repository{dialect: tt.dialect}
		if got := r.rebind(tt.in); got != tt.want {
			t.Errorf("rebind(%s, %q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestTimestampScan(t *testing.T) {
	want := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, src := range []any{want, want.Format(time.RFC3339Nano), []byte(want.Format(time.RFC3339Nano))} {
		var ts timestamp
		if err := ts.Scan(src); err != nil {
			t.Fatalf("Scan(%T): %v", src, err)
		}
		if !time.Time(ts).Equal(want) {
			t.Errorf("Scan(%T) = %v, want %v", src, time.Time(ts), want)
		}
	}
	var ts timestamp
	if err := ts.Scan(42); err == nil {
		t.Error("expected error for integer source")
	}
}
