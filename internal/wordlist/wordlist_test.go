package wordlist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"one per line", "apple\nbanana\r\ncherry\n", []string{"apple", "banana", "cherry"}},
		{"punctuation", "Hello, world! (again) hello.", []string{"Hello", "world", "again", "hello"}},
		{"joiners", "don't well-known -edge trailing- 'quoted'", []string{"don't", "well-known", "edge", "trailing", "quoted"}},
		{"duplicates keep first position", "b a b c a", []string{"b", "a", "c"}},
		{"digits", "route66 2024", []string{"route66", "2024"}},
		{"unicode", "naïve café 日本語 Straße", []string{"naïve", "café", "日本語", "Straße"}},
		{"combining marks", "cafe\u0301 x", []string{"cafe\u0301", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestDecodeText(t *testing.T) {
	t.Run("utf-8", func(t *testing.T) {
		got, err := DecodeText([]byte("héllo"))
		require.NoError(t, err)
		assert.Equal(t, "héllo", got)
	})

	t.Run("utf-8 bom", func(t *testing.T) {
		got, err := DecodeText(append([]byte{0xEF, 0xBB, 0xBF}, "word"...))
		require.NoError(t, err)
		assert.Equal(t, "word", got)
	})

	t.Run("utf-16le bom", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		raw, err := enc.String("apple banana")
		require.NoError(t, err)

		got, err := DecodeText([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "apple banana", got)
	})

	t.Run("latin-1", func(t *testing.T) {
		// 0xE9 is é in every Latin single-byte charset the detector may pick
		raw := []byte("le caf\xe9 et le th\xe9 sont pr\xe9par\xe9s pour la soir\xe9e")

		got, err := DecodeText(raw)
		require.NoError(t, err)
		assert.Contains(t, got, "café")
		assert.Contains(t, got, "soirée")
	})
}

func TestMarkdownExtractor(t *testing.T) {
	src := "# Fruit list\n\nSome *apples* and **pears**, plus `inline` code.\n\n" +
		"```go\nfunc hidden() {}\n```\n\n" +
		"    indented block\n\n" +
		"- cherry\n- [plum](https://example.com/linkpath)\n\n" +
		"<div>rawhtml</div>\n"

	got, err := ExtractReader(strings.NewReader(src), KindMarkdown)
	require.NoError(t, err)

	assert.Equal(t, []string{"Fruit", "list", "Some", "apples", "and", "pears", "plus", "inline", "code", "cherry", "plum"}, got)
}

func TestHTMLExtractor(t *testing.T) {
	src := `<!DOCTYPE html><html><head><title>ignored</title><style>.x{color:red}</style></head>
<body><h1>Hello&nbsp;there</h1><p>First <b>bold</b> para.</p>
<script>var secret = 1;</script><p>Second&amp;last</p></body></html>`

	got, err := ExtractReader(strings.NewReader(src), KindHTML)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", "there", "First", "bold", "para", "Second", "last"}, got)
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"words.txt": "alpha\nbeta\ngamma\n",
		"notes.md":  "# Title\n\n```\nskipped\n```\nbody\n",
		"page.html": "<p>visible</p><script>invisible</script>",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	tests := []struct {
		file string
		want []string
	}{
		{"words.txt", []string{"alpha", "beta", "gamma"}},
		{"notes.md", []string{"Title", "body"}},
		{"page.html", []string{"visible"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := Extract(filepath.Join(dir, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Extract(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindMarkdown, KindFromPath("README.MD"))
	assert.Equal(t, KindHTML, KindFromPath("/tmp/index.htm"))
	assert.Equal(t, KindText, KindFromPath("words"))
	assert.Equal(t, KindText, KindFromPath("list.csv"))

	k, err := ParseKind(" HTML ")
	require.NoError(t, err)
	assert.Equal(t, KindHTML, k)

	_, err = ParseKind("pdf")
	assert.Error(t, err)

	_, err = ExtractReader(strings.NewReader("x"), Kind("pdf"))
	assert.Error(t, err)
}
