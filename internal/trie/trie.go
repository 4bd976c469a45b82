package trie

import (
	"errors"
	"sync"
	"unicode/utf8"
)

// DefaultMaxWordLength is the longest word, in runes, accepted by a trie built without options.
const DefaultMaxWordLength = 256

var (
	// ErrEmptyWord is returned when inserting or deleting the empty string.
	ErrEmptyWord = errors.New("word is empty")
	// ErrWordTooLong is returned when a word or prefix exceeds the maximum length.
	ErrWordTooLong = errors.New("word exceeds maximum length")
	// ErrInvalidEncoding is returned when a word or prefix is not valid UTF-8.
	ErrInvalidEncoding = errors.New("word is not valid UTF-8")
)

// Trie is a prefix tree of words. It is safe for concurrent use: searches
// share a read lock and inserts/deletes take the write lock.
type Trie struct {
	mu     sync.RWMutex
	root   *Node
	words  int
	nodes  int
	maxLen int
}

// Option configures a Trie.
type Option func(*Trie)

// WithMaxWordLength caps the number of runes in a word or prefix.
func WithMaxWordLength(n int) Option {
	return func(t *Trie) {
		if n > 0 {
			t.maxLen = n
		}
	}
}

// New creates a new empty trie
func New(opts ...Option) *Trie {
	t := &Trie{
		root:   newNode(),
		maxLen: DefaultMaxWordLength,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxWordLength returns the configured maximum word length in runes.
func (t *Trie) MaxWordLength() int {
	return t.maxLen
}

// Validate checks a word against the rules Insert and Delete enforce.
func (t *Trie) Validate(word string) error {
	if word == "" {
		return ErrEmptyWord
	}
	return t.validatePrefix(word)
}

func (t *Trie) validatePrefix(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidEncoding
	}
	if utf8.RuneCountInString(s) > t.maxLen {
		return ErrWordTooLong
	}
	return nil
}

// Insert adds a word to the trie. Inserting a word that is already present
// leaves the trie unchanged.
func (t *Trie) Insert(word string) error {
	if err := t.Validate(word); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	node := t.root
	for _, ch := range word {
		next := node.child(ch)
		if next == nil {
			next = newNode()
			node.children[ch] = next
			t.nodes++
		}
		node = next
	}
	if !node.terminal {
		node.terminal = true
		t.words++
	}
	return nil
}

// findNode returns the node for prefix, or nil if no such path exists.
// Caller must hold t.mu.
func (t *Trie) findNode(prefix string) *Node {
	node := t.root
	for _, ch := range prefix {
		node = node.child(ch)
		if node == nil {
			return nil
		}
	}
	return node
}

// Contains reports whether word is currently in the trie.
func (t *Trie) Contains(word string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node := t.findNode(word)
	return node != nil && node != t.root && node.terminal
}

// WalkFunc is called for each word found by Walk. Returning false stops the walk.
type WalkFunc func(word string) bool

type frame struct {
	node *Node
	word string
}

// Walk calls fn for every word that starts with prefix. Words are visited
// depth-first with children in ascending rune order, so a word always comes
// before its extensions. fn runs under the read lock and must not modify the trie.
func (t *Trie) Walk(prefix string, fn WalkFunc) error {
	if err := t.validatePrefix(prefix); err != nil {
		return err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	start := t.findNode(prefix)
	if start == nil {
		return nil
	}

	stack := []frame{{node: start, word: prefix}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.node.terminal && top.node != t.root {
			if !fn(top.word) {
				return nil
			}
		}

		// Push in reverse so the smallest rune is popped first
		keys := top.node.sortedKeys()
		for i := len(keys) - 1; i >= 0; i-- {
			ch := keys[i]
			stack = append(stack, frame{node: top.node.children[ch], word: top.word + string(ch)})
		}
	}
	return nil
}

// Search returns every word that starts with prefix. An unknown prefix yields
// an empty slice; the empty prefix yields all words.
func (t *Trie) Search(prefix string) ([]string, error) {
	return t.SearchN(prefix, 0)
}

// SearchN is Search capped at limit results. A limit of zero or less means no cap.
func (t *Trie) SearchN(prefix string, limit int) ([]string, error) {
	results := []string{}
	err := t.Walk(prefix, func(word string) bool {
		results = append(results, word)
		return limit <= 0 || len(results) < limit
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes word from the trie and prunes every node on its path that
// no longer leads to a word. It reports whether the word was present;
// deleting an absent word is a no-op.
func (t *Trie) Delete(word string) (bool, error) {
	if err := t.Validate(word); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// path[i] is the node reached after consuming the first i runes
	runes := []rune(word)
	path := make([]*Node, 0, len(runes)+1)
	path = append(path, t.root)
	node := t.root
	for _, ch := range runes {
		node = node.child(ch)
		if node == nil {
			return false, nil
		}
		path = append(path, node)
	}

	if !node.terminal {
		return false, nil
	}
	node.terminal = false
	t.words--

	for i := len(runes); i > 0; i-- {
		if !path[i].prunable() {
			break
		}
		delete(path[i-1].children, runes[i-1])
		t.nodes--
	}
	return true, nil
}

// Len returns the number of words in the trie.
func (t *Trie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.words
}

// NodeCount returns the number of nodes below the root.
func (t *Trie) NodeCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes
}

// Reset drops every word, leaving an empty root.
func (t *Trie) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.root = newNode()
	t.words = 0
	t.nodes = 0
}
