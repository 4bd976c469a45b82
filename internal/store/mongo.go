package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoOptions configures the MongoDB-backed store.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// wordDocument is the stored shape of a word: {text: "..."}.
type wordDocument struct {
	Text string `bson:"text"`
}

// mongoStore keeps one document per word in a MongoDB collection
type mongoStore struct {
	client  *mongo.Client
	words   *mongo.Collection
	timeout time.Duration
}

// NewMongoStore connects to MongoDB and verifies the connection
func NewMongoStore(ctx context.Context, opts MongoOptions) (Store, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo store requires a uri")
	}
	if opts.Database == "" {
		opts.Database = "autocomplete"
	}
	if opts.Collection == "" {
		opts.Collection = "words"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &mongoStore{
		client:  client,
		words:   client.Database(opts.Database).Collection(opts.Collection),
		timeout: opts.Timeout,
	}, nil
}

func (s *mongoStore) LoadAll(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.words.Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "text", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query words: %w", err)
	}
	defer cursor.Close(ctx)

	set := make(map[string]struct{})
	for cursor.Next(ctx) {
		var doc wordDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode word: %w", err)
		}
		set[doc.Text] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read words: %w", err)
	}
	return sortedWords(set), nil
}

func (s *mongoStore) Add(ctx context.Context, word string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Upsert keeps the collection a set even when a word is added twice
	filter := bson.D{{Key: "text", Value: word}}
	update := bson.D{{Key: "$setOnInsert", Value: wordDocument{Text: word}}}
	if _, err := s.words.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to save word: %w", err)
	}
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, word string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.words.DeleteMany(ctx, bson.D{{Key: "text", Value: word}}); err != nil {
		return fmt.Errorf("failed to delete word: %w", err)
	}
	return nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
