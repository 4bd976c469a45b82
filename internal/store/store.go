package store

import (
	"context"
	"errors"
	"fmt"
)

// Store is the durable record of accepted words. The index is rebuilt from
// LoadAll at startup and every add/delete is written here as well.
type Store interface {
	// LoadAll returns every stored word, sorted and without duplicates.
	LoadAll(ctx context.Context) ([]string, error)
	// Add records a word. Adding a word that is already stored is not an error.
	Add(ctx context.Context, word string) error
	// Delete removes a word. Deleting an absent word is not an error.
	Delete(ctx context.Context, word string) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// Type names a Store backend.
type Type string

const (
	// TypeMemory keeps words in process memory only
	TypeMemory Type = "memory"
	// TypeWAL keeps words in an append-only log on disk
	TypeWAL Type = "wal"
	// TypeMongo keeps words in a MongoDB collection
	TypeMongo Type = "mongo"
)

// Common errors
var (
	ErrClosed = errors.New("store is closed")
	// ErrWordTooLarge is returned when a word exceeds what the backend can persist.
	ErrWordTooLarge = errors.New("word too large for store")
)

// Options selects and configures a backend for Open.
type Options struct {
	Type  Type
	WAL   WALOptions
	Mongo MongoOptions
}

// Open creates the backend named by opts.Type.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Type {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeWAL:
		return NewWALStore(opts.WAL)
	case TypeMongo:
		return NewMongoStore(ctx, opts.Mongo)
	default:
		return nil, fmt.Errorf("unsupported store type: %q", opts.Type)
	}
}
