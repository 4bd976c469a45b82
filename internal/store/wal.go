package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kumarlokesh/autocomplete/internal/wal"
)

// WALOptions configures the log-backed store.
type WALOptions struct {
	Dir           string
	SegmentSize   int64
	Sync          bool
	BufferSize    int
	FlushInterval time.Duration
}

// MaxWALWordLength is the longest word, in runes, that always fits in a log
// record whatever its encoding.
const MaxWALWordLength = wal.MaxWordSize / utf8.UTFMax

// Compactor is implemented by stores that can shrink their on-disk history.
type Compactor interface {
	Compact(ctx context.Context) error
}

// walStore persists words as add/delete records in a write-ahead log.
type walStore struct {
	// mu keeps appends out of the window between replay and compaction
	mu  sync.Mutex
	log *wal.Log
}

// NewWALStore opens (or creates) a log-backed store in opts.Dir
func NewWALStore(opts WALOptions) (Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("wal store requires a directory")
	}

	l, err := wal.Open(&wal.Config{
		Dir:           opts.Dir,
		SegmentSize:   opts.SegmentSize,
		Sync:          opts.Sync,
		BufferSize:    opts.BufferSize,
		FlushInterval: opts.FlushInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open word log: %w", err)
	}
	return &walStore{log: l}, nil
}

// live replays the log into the current word set.
func (s *walStore) live() (map[string]struct{}, error) {
	words := make(map[string]struct{})
	err := s.log.Replay(func(r *wal.Record) error {
		switch r.Type {
		case wal.RecordAdd:
			words[string(r.Word)] = struct{}{}
		case wal.RecordDelete:
			delete(words, string(r.Word))
		default:
			return fmt.Errorf("unknown record type %d at lsn %d", r.Type, r.LSN)
		}
		return nil
	})
	if err != nil {
		return nil, translateWALError(err)
	}
	return words, nil
}

func (s *walStore) LoadAll(ctx context.Context) ([]string, error) {
	words, err := s.live()
	if err != nil {
		return nil, fmt.Errorf("failed to replay word log: %w", err)
	}
	return sortedWords(words), nil
}

func (s *walStore) append(t wal.RecordType, word string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.log.Append(t, []byte(word)); err != nil {
		return translateWALError(err)
	}
	if err := s.log.Sync(); err != nil {
		return translateWALError(err)
	}
	return nil
}

func (s *walStore) Add(ctx context.Context, word string) error {
	if err := s.append(wal.RecordAdd, word); err != nil {
		return fmt.Errorf("failed to log add: %w", err)
	}
	return nil
}

func (s *walStore) Delete(ctx context.Context, word string) error {
	if err := s.append(wal.RecordDelete, word); err != nil {
		return fmt.Errorf("failed to log delete: %w", err)
	}
	return nil
}

// Compact rewrites the log so it holds exactly one record per live word.
func (s *walStore) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	words, err := s.live()
	if err != nil {
		return fmt.Errorf("failed to replay word log: %w", err)
	}

	sorted := sortedWords(words)
	payload := make([][]byte, len(sorted))
	for i, w := range sorted {
		payload[i] = []byte(w)
	}
	if err := s.log.Compact(payload); err != nil {
		return fmt.Errorf("failed to compact word log: %w", translateWALError(err))
	}
	return nil
}

func (s *walStore) Ping(ctx context.Context) error {
	if _, err := s.log.Segments(); err != nil {
		return fmt.Errorf("failed to access word log: %w", err)
	}
	return translateWALError(s.log.Sync())
}

func (s *walStore) Close() error {
	return s.log.Close()
}

func translateWALError(err error) error {
	switch {
	case errors.Is(err, wal.ErrClosed):
		return ErrClosed
	case errors.Is(err, wal.ErrRecordTooLarge):
		return ErrWordTooLarge
	}
	return err
}
