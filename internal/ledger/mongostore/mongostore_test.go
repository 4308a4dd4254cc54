package mongostore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"budget/internal/core"
)

func sampleTx(t *testing.T) core.Transaction {
	t.Helper()
	amount, err := core.ParseAmount("1234.567")
	if err != nil {
		t.Fatal(err)
	}
	return core.Transaction{
		ID:        "tx-1",
		UserID:    "user-1",
		Title:     "Groceries",
		Amount:    amount,
		Category:  "Food",
		Type:      core.Expense,
		CreatedAt: time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC),
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	tx := sampleTx(t)

	raw, err := bson.Marshal(toDocument(tx))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"_id", "userId", "title", "amount", "category", "type", "createdAt", "seq"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("document missing field %q", key)
		}
	}
	if fields["amount"] != "1234.567" {
		t.Errorf("amount should be stored as decimal string, got %#v", fields["amount"])
	}

	var d document
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	got, err := d.transaction()
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if got.ID != tx.ID || got.UserID != tx.UserID || !got.Amount.Equal(tx.Amount) || got.Type != tx.Type || !got.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, tx)
	}
}

func TestDocumentRejectsCorruptValues(t *testing.T) {
	d := toDocument(sampleTx(t))
	d.Amount = "lots"
	if _, err := d.transaction(); err == nil {
		t.Fatal("expected error for corrupt amount")
	}

	d = toDocument(sampleTx(t))
	d.Type = "refund"
	if _, err := d.transaction(); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestDocumentSeqFollowsInsertionOrder(t *testing.T) {
	tx := sampleTx(t)
	prev := toDocument(tx)
	for i := 0; i < 100; i++ {
		next := toDocument(tx)
		if bytes.Compare(prev.Seq[:], next.Seq[:]) >= 0 {
			t.Fatalf("seq %s not after %s", next.Seq.Hex(), prev.Seq.Hex())
		}
		prev = next
	}
	if listOrder[len(listOrder)-1].Key != "seq" {
		t.Fatalf("list order must end on seq, got %v", listOrder)
	}
}

func TestStoreAgainstServer(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set, skipping mongo test")
	}
	ctx := context.Background()
	s, err := Open(ctx, uri, "budget_test_"+time.Now().Format("20060102150405"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		s.coll.Database().Drop(ctx)
		s.Close()
	}()

	tx := sampleTx(t)
	if _, err := s.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Delete(ctx, "someone-else", tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.ListByUser(ctx, tx.UserID)
	if err != nil || len(got) != 1 {
		t.Fatalf("ListByUser: %v %v", got, err)
	}
	if err := s.Delete(ctx, tx.UserID, tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := s.ListByUser(ctx, tx.UserID); len(got) != 0 {
		t.Fatalf("expected empty list, got %d", len(got))
	}

	// records sharing a millisecond come back in insertion order
	for i := 0; i < 10; i++ {
		same := tx
		same.ID = fmt.Sprintf("burst-%d", i)
		if _, err := s.Insert(ctx, same); err != nil {
			t.Fatalf("Insert %s: %v", same.ID, err)
		}
	}
	got, err = s.ListByUser(ctx, tx.UserID)
	if err != nil || len(got) != 10 {
		t.Fatalf("ListByUser: %d %v", len(got), err)
	}
	for i, r := range got {
		if want := fmt.Sprintf("burst-%d", i); r.ID != want {
			t.Fatalf("position %d = %s, want %s", i, r.ID, want)
		}
	}
}
