// Package mongodb implements a shared nonce store using MongoDB
package mongodb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mailgun/timetools"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirosfoundation/go-wssec/internal/storage"
	"github.com/sirosfoundation/go-wssec/pkg/nonce"
)

// NonceStore implements storage.NonceStore using a MongoDB collection.
//
// Each nonce is a document keyed by its base64 encoding with an expiresAt
// field carrying a TTL index. The unique _id makes the insert atomic across
// service instances.
type NonceStore struct {
	client          *mongo.Client
	nonces          *mongo.Collection
	cachingTimeSpan time.Duration
	clock           timetools.TimeProvider
}

// Config holds MongoDB connection settings
type Config struct {
	URI             string
	Database        string
	Collection      string
	CachingTimeSpan time.Duration
	Clock           timetools.TimeProvider
}

type nonceDocument struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// NewNonceStore connects to MongoDB and prepares the nonce collection
func NewNonceStore(ctx context.Context, cfg *Config) (*NonceStore, error) {
	if err := nonce.ValidateCachingTimeSpan(cfg.CachingTimeSpan); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "wssec"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "nonces"
	}
	clock := cfg.Clock
	if clock == nil {
		clock = &timetools.RealTime{}
	}

	s := &NonceStore{
		client:          client,
		nonces:          client.Database(database).Collection(collection),
		cachingTimeSpan: cfg.CachingTimeSpan,
		clock:           clock,
	}

	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

func (s *NonceStore) createIndexes(ctx context.Context) error {
	_, err := s.nonces.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("creating nonce TTL index: %w", err)
	}
	return nil
}

func nonceID(n []byte) string {
	return base64.StdEncoding.EncodeToString(n)
}

// TryAddNonce inserts the nonce. A duplicate key means replay unless the
// stored document has already expired and the TTL monitor has not removed
// it yet, in which case the document is taken over.
func (s *NonceStore) TryAddNonce(ctx context.Context, n []byte) (bool, error) {
	if len(n) == 0 {
		return false, nonce.ErrEmptyNonce
	}

	now := s.clock.UtcNow()
	doc := nonceDocument{
		ID:        nonceID(n),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cachingTimeSpan),
	}

	_, err := s.nonces.InsertOne(ctx, doc)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("inserting nonce: %w", err)
	}

	res, err := s.nonces.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "expiresAt": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"createdAt": doc.CreatedAt, "expiresAt": doc.ExpiresAt}},
	)
	if err != nil {
		return false, fmt.Errorf("taking over expired nonce: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// CheckNonce reports whether the nonce is stored and not yet expired
func (s *NonceStore) CheckNonce(ctx context.Context, n []byte) (bool, error) {
	if len(n) == 0 {
		return false, nonce.ErrEmptyNonce
	}

	var doc nonceDocument
	err := s.nonces.FindOne(ctx, bson.M{
		"_id":       nonceID(n),
		"expiresAt": bson.M{"$gt": s.clock.UtcNow()},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finding nonce: %w", err)
	}
	return true, nil
}

// CachingTimeSpan returns how long each nonce is kept
func (s *NonceStore) CachingTimeSpan() time.Duration {
	return s.cachingTimeSpan
}

// CacheSize returns 0: the collection is bounded by the TTL index only
func (s *NonceStore) CacheSize() int {
	return 0
}

// Ping verifies database connectivity
func (s *NonceStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (s *NonceStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ storage.NonceStore = (*NonceStore)(nil)
