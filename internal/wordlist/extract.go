package wordlist

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// Extractor pulls the visible text out of a decoded document.
type Extractor interface {
	Extract(src []byte) (string, error)
}

// plainExtractor returns the document unchanged.
type plainExtractor struct{}

func (plainExtractor) Extract(src []byte) (string, error) {
	return string(src), nil
}

// markdownExtractor keeps prose and inline code, dropping code blocks and raw HTML.
type markdownExtractor struct {
	md goldmark.Markdown
}

func newMarkdownExtractor() *markdownExtractor {
	return &markdownExtractor{md: goldmark.New()}
}

func (e *markdownExtractor) Extract(src []byte) (string, error) {
	root := e.md.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node.Type() == ast.TypeBlock {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(n.Segment.Value(src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(n.Value)
			sb.WriteByte(' ')
		case *ast.AutoLink:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("markdown walk failed: %w", err)
	}
	return sb.String(), nil
}

// htmlExtractor returns the text nodes of an HTML document outside
// script, style and head.
type htmlExtractor struct{}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"head":     true,
	"noscript": true,
	"template": true,
}

func (htmlExtractor) Extract(src []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("html parse error: %w", err)
	}

	var sb strings.Builder
	stack := []*html.Node{doc}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			continue
		case html.ElementNode:
			if skippedElements[n.Data] {
				continue
			}
		}

		// Push children last-first so they pop in document order
		for c := n.LastChild; c != nil; c = c.PrevSibling {
			stack = append(stack, c)
		}
	}
	return sb.String(), nil
}
