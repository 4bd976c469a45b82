package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

var errInterrupted = errors.New("interrupted")

// completeFunc returns the candidates for a partial word.
type completeFunc func(prefix string) ([]string, error)

// lineEditor reads one line at a time from a terminal in raw mode, completing
// the word under the cursor on Tab.
type lineEditor struct {
	in        *bufio.Reader
	out       io.Writer
	prompt    string
	complete  completeFunc
	maxListed int
}

func newLineEditor(in io.Reader, out io.Writer, prompt string, complete completeFunc) *lineEditor {
	return &lineEditor{
		in:        bufio.NewReader(in),
		out:       out,
		prompt:    prompt,
		complete:  complete,
		maxListed: 20,
	}
}

// ReadLine returns the next line. It returns io.EOF on Ctrl+D at an empty
// line and errInterrupted on Ctrl+C.
func (e *lineEditor) ReadLine() (string, error) {
	var line []rune
	fmt.Fprint(e.out, e.prompt)

	for {
		r, _, err := e.in.ReadRune()
		if err != nil {
			return "", err
		}

		switch r {
		case '\r', '\n': // Enter
			fmt.Fprint(e.out, "\r\n")
			return string(line), nil

		case 127, 8: // Backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				e.redraw(line)
			}

		case 3: // Ctrl+C
			fmt.Fprint(e.out, "^C\r\n")
			return "", errInterrupted

		case 4: // Ctrl+D
			if len(line) == 0 {
				fmt.Fprint(e.out, "\r\n")
				return "", io.EOF
			}

		case 21: // Ctrl+U
			line = line[:0]
			e.redraw(line)

		case '\t':
			line = e.completeWord(line)

		case 27: // Escape sequence (e.g. arrow keys), ignored
			if next, _, err := e.in.ReadRune(); err == nil && next == '[' {
				_, _, _ = e.in.ReadRune()
			}

		default:
			if unicode.IsPrint(r) {
				line = append(line, r)
				fmt.Fprint(e.out, string(r))
			}
		}
	}
}

// completeWord replaces the last word of line with its completion. A single
// candidate is taken whole; several are narrowed to their common prefix, and
// listed when that does not get any further.
func (e *lineEditor) completeWord(line []rune) []rune {
	start := len(line)
	for start > 0 && !unicode.IsSpace(line[start-1]) {
		start--
	}
	word := line[start:]

	candidates, err := e.complete(string(word))
	if err != nil || len(candidates) == 0 {
		fmt.Fprint(e.out, "\a")
		return line
	}

	if len(candidates) == 1 {
		line = append(line[:start], []rune(candidates[0]+" ")...)
		e.redraw(line)
		return line
	}

	common := []rune(longestCommonPrefix(candidates))
	if len(common) > len(word) {
		line = append(line[:start], common...)
		e.redraw(line)
		return line
	}

	fmt.Fprint(e.out, "\r\n")
	for i, c := range candidates {
		if i == e.maxListed {
			fmt.Fprintf(e.out, "... and %d more\r\n", len(candidates)-i)
			break
		}
		fmt.Fprintf(e.out, "%s\r\n", c)
	}
	e.redraw(line)
	return line
}

func (e *lineEditor) redraw(line []rune) {
	fmt.Fprintf(e.out, "\r\033[K%s%s", e.prompt, string(line))
}

func longestCommonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := []rune(words[0])
	for _, w := range words[1:] {
		i := 0
		for _, r := range w {
			if i >= len(prefix) || prefix[i] != r {
				break
			}
			i++
		}
		prefix = prefix[:i]
	}
	return string(prefix)
}

// printCompletions writes one line of completions for prefix.
func printCompletions(out io.Writer, prefix string, words []string, eol string) {
	if len(words) == 0 {
		fmt.Fprintf(out, "no completions for %q%s", prefix, eol)
		return
	}
	fmt.Fprintf(out, "%s%s", strings.Join(words, "  "), eol)
}
