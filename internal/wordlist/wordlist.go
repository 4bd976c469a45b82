// Package wordlist turns word-list files and documents into the words they contain.
package wordlist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Kind identifies how a document's text is laid out.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

// MaxFileSize bounds the size of a single imported file.
const MaxFileSize = 64 << 20 // 64MB

var extractors = map[Kind]Extractor{
	KindText:     plainExtractor{},
	KindMarkdown: newMarkdownExtractor(),
	KindHTML:     htmlExtractor{},
}

var kindsByExt = map[string]Kind{
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".html":     KindHTML,
	".htm":      KindHTML,
	".xhtml":    KindHTML,
}

// KindFromPath picks a Kind from the file extension. Anything unrecognised is
// read as plain text.
func KindFromPath(path string) Kind {
	if k, ok := kindsByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return KindText
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := extractors[k]; !ok {
		return "", fmt.Errorf("unknown document kind: %q", s)
	}
	return k, nil
}

// Extract reads the file at path and returns its words.
func Extract(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words, err := ExtractReader(f, KindFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// ExtractReader decodes r, extracts the visible text for kind and returns the
// words in first-seen order without duplicates.
func ExtractReader(r io.Reader, kind Kind) ([]string, error) {
	ex, ok := extractors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown document kind: %q", kind)
	}

	raw, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(raw) > MaxFileSize {
		return nil, fmt.Errorf("input larger than %d bytes", MaxFileSize)
	}

	decoded, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}

	content, err := ex.Extract([]byte(decoded))
	if err != nil {
		return nil, err
	}
	return Tokenize(content), nil
}

// Tokenize splits text into words. A word is a run of letters, digits and
// combining marks; an apostrophe or hyphen is kept only between two word
// characters, so "don't" and "well-known" stay whole. Duplicates are dropped.
func Tokenize(text string) []string {
	runes := []rune(text)
	seen := make(map[string]struct{})
	words := make([]string, 0)

	var cur []rune
	flush := func() {
		if len(cur) == 0 {
			return
		}
		w := string(cur)
		cur = cur[:0]
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			cur = append(cur, r)
		case isJoiner(r) && len(cur) > 0 && i+1 < len(runes) && isWordRune(runes[i+1]):
			cur = append(cur, r)
		default:
			flush()
		}
	}
	flush()
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func isJoiner(r rune) bool {
	switch r {
	case '\'', '-', '’':
		return true
	}
	return false
}
