// Package mongostore keeps ledger records in a MongoDB collection, one
// document per transaction.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"budget/internal/core"
)

const (
	CollectionName = "transactions"
	connectTimeout = 10 * time.Second
)

// document is the stored shape. Amounts are kept as decimal strings so no
// precision is lost going through BSON doubles. createdAt only holds
// milliseconds, so Seq breaks ties in insertion order.
type document struct {
	ID        string             `bson:"_id"`
	UserID    string             `bson:"userId"`
	Title     string             `bson:"title"`
	Amount    string             `bson:"amount"`
	Category  string             `bson:"category"`
	Type      string             `bson:"type"`
	CreatedAt primitive.DateTime `bson:"createdAt"`
	Seq       primitive.ObjectID `bson:"seq"`
}

func toDocument(tx core.Transaction) document {
	return document{
		ID:        tx.ID,
		UserID:    tx.UserID,
		Title:     tx.Title,
		Amount:    tx.Amount.String(),
		Category:  tx.Category,
		Type:      tx.Type.String(),
		CreatedAt: primitive.NewDateTimeFromTime(tx.CreatedAt),
		Seq:       primitive.NewObjectID(),
	}
}

// listOrder sorts documents in insertion order.
var listOrder = bson.D{{Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}}

func (d document) transaction() (core.Transaction, error) {
	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	typ, err := core.ParseTransactionType(d.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return core.Transaction{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		Amount:    amount,
		Category:  d.Category,
		Type:      typ,
		CreatedAt: d.CreatedAt.Time().UTC(),
	}, nil
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to uri, verifies the connection and ensures the userId index.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, coll: client.Database(database).Collection(CollectionName)}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetName("user_created_seq"),
	})
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if _, err := s.coll.InsertOne(ctx, toDocument(tx)); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

// ListByUser returns the user's documents in insertion order.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	opts := options.Find().SetSort(listOrder)
	cur, err := s.coll.Find(ctx, bson.D{{Key: "userId", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]core.Transaction, 0)
	for cur.Next(ctx) {
		var d document
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode transaction: %w", err)
		}
		tx, err := d.transaction()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Delete matches on both id and owner, so foreign ids are a no-op.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: userID}})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
