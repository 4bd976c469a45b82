package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"github.com/kumarlokesh/autocomplete/internal/normalize"
	"github.com/kumarlokesh/autocomplete/internal/store"
	"github.com/kumarlokesh/autocomplete/internal/trie"
)

var (
	// ErrInvalidWord wraps the index's validation errors for words and prefixes.
	ErrInvalidWord = errors.New("invalid word")
	// ErrInvalidLimit is returned for a negative search limit.
	ErrInvalidLimit = errors.New("invalid limit")
)

// Options configures a Service.
type Options struct {
	Normalization normalize.Mode
	DefaultLimit  int // applied when a search asks for no limit; 0 means unlimited
	MaxLimit      int // upper bound on any search; 0 means unbounded
	CacheSize     int // number of cached search results; 0 disables the cache
}

// Stats describes the current index.
type Stats struct {
	Words       int `json:"words"`
	Nodes       int `json:"nodes"`
	CachedPages int `json:"cached_pages"`
}

// Service keeps the prefix index and the durable store in step. Reads only
// touch the index; writes go to both.
type Service struct {
	index     *trie.Trie
	store     store.Store
	normalize normalize.Func
	opts      Options
	cache     *lru.Cache
	logger    zerolog.Logger

	// cacheMu orders cache fills against purges. cacheGen is bumped on every
	// purge; a search result is cached only if no purge happened since the
	// search began.
	cacheMu  sync.Mutex
	cacheGen uint64

	// writeMu serializes store+index writes so a rollback never interleaves
	// with another write of the same word.
	writeMu sync.Mutex
}

// New creates a Service. Call Load to populate the index from the store.
func New(index *trie.Trie, st store.Store, opts Options, logger zerolog.Logger) (*Service, error) {
	fn, err := normalize.New(opts.Normalization)
	if err != nil {
		return nil, err
	}
	if opts.DefaultLimit < 0 || opts.MaxLimit < 0 {
		return nil, fmt.Errorf("search limits cannot be negative")
	}

	s := &Service{
		index:     index,
		store:     st,
		normalize: fn,
		opts:      opts,
		logger:    logger.With().Str("component", "service").Logger(),
	}

	if opts.CacheSize > 0 {
		s.cache, err = lru.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create search cache: %w", err)
		}
	}
	return s, nil
}

// Load inserts every stored word into the index. Words the index rejects are
// logged and skipped rather than failing startup.
func (s *Service) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.load(ctx, false)
}

// Reload rebuilds the index from the store. If the store cannot be read the
// current index is kept.
func (s *Service) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.load(ctx, true)
}

func (s *Service) load(ctx context.Context, reset bool) error {
	start := time.Now()

	words, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load words: %w", err)
	}
	if reset {
		s.index.Reset()
	}

	skipped := 0
	for _, w := range words {
		if err := s.index.Insert(s.normalize(w)); err != nil {
			skipped++
			s.logger.Warn().Err(err).Str("word", w).Msg("Skipping stored word")
		}
	}
	s.purgeCache()

	s.logger.Info().
		Int("loaded", len(words)-skipped).
		Int("skipped", skipped).
		Int("nodes", s.index.NodeCount()).
		Dur("took", time.Since(start)).
		Msg("Index built from store")
	return nil
}

// Search returns the words starting with prefix. A limit of 0 uses the
// configured default; any limit is capped at the configured maximum.
func (s *Service) Search(prefix string, limit int) ([]string, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = s.opts.DefaultLimit
	}
	if s.opts.MaxLimit > 0 && (limit == 0 || limit > s.opts.MaxLimit) {
		limit = s.opts.MaxLimit
	}

	prefix = s.normalize(prefix)
	key := strconv.Itoa(limit) + "\x00" + prefix

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cloneWords(cached.([]string)), nil
		}
	}

	gen := s.cacheGeneration()
	words, err := s.index.SearchN(prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}

	s.fillCache(key, gen, words)
	return words, nil
}

// AddWord stores word and then indexes it. If the store write fails the
// index is left untouched.
func (s *Service) AddWord(ctx context.Context, word string) error {
	word = s.normalize(word)
	if err := s.index.Validate(word); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Add(ctx, word); err != nil {
		if errors.Is(err, store.ErrWordTooLarge) {
			return fmt.Errorf("%w: %v", ErrInvalidWord, err)
		}
		return fmt.Errorf("failed to store word: %w", err)
	}
	if err := s.index.Insert(word); err != nil {
		// Only reachable if Validate and Insert disagree
		return fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}
	s.purgeCache()

	s.logger.Debug().Str("word", word).Msg("Word added")
	return nil
}

// DeleteWord removes word from the index and then from the store. If the
// store write fails the word is put back in the index. Deleting an unknown
// word still reaches the store so stale stored copies are cleaned up.
func (s *Service) DeleteWord(ctx context.Context, word string) error {
	word = s.normalize(word)
	if err := s.index.Validate(word); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	removed, err := s.index.Delete(word)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWord, err)
	}
	s.purgeCache()

	if err := s.store.Delete(ctx, word); err != nil {
		if removed {
			if rerr := s.index.Insert(word); rerr != nil {
				s.logger.Error().Err(rerr).Str("word", word).Msg("Failed to restore word after store error")
			}
			s.purgeCache()
		}
		return fmt.Errorf("failed to delete stored word: %w", err)
	}

	s.logger.Debug().Str("word", word).Bool("present", removed).Msg("Word deleted")
	return nil
}

// Stats returns counters for the index and cache.
func (s *Service) Stats() Stats {
	st := Stats{
		Words: s.index.Len(),
		Nodes: s.index.NodeCount(),
	}
	if s.cache != nil {
		st.CachedPages = s.cache.Len()
	}
	return st
}

// Ping checks the durable store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Store returns the durable store behind the service.
func (s *Service) Store() store.Store {
	return s.store
}

func (s *Service) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// fillCache stores words under key unless the cache was purged after gen was
// read, in which case words may predate a write and are dropped.
func (s *Service) fillCache(key string, gen uint64, words []string) {
	if s.cache == nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if gen != s.cacheGen {
		return
	}
	s.cache.Add(key, cloneWords(words))
}

func (s *Service) purgeCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cacheGen++
	if s.cache != nil {
		s.cache.Purge()
	}
}

func cloneWords(words []string) []string {
	out := make([]string, len(words))
	copy(out, words)
	return out
}
