// Package chunk splits documents into overlapping, bounded-length segments
// aligned to sentence boundaries. Splitting is a pure function of the input
// text: the same document always produces the same chunks.
package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tamias/pkg/model"
)

const trailingWS = " \t\r\n"

// Splitter accumulates whole sentences into chunks of at most MaxSize
// characters. A sentence longer than MaxSize is emitted as its own
// oversized chunk; sentences are never broken internally.
type Splitter struct {
	maxSize int
	overlap int
}

func New(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, goerr.New("chunk size must be positive",
			goerr.T(model.TagConfiguration), goerr.V("max_size", maxSize))
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, goerr.New("chunk overlap must be non-negative and smaller than chunk size",
			goerr.T(model.TagConfiguration),
			goerr.V("max_size", maxSize), goerr.V("overlap", overlap))
	}

	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// Split returns the chunks of text in document order. Empty or
// whitespace-only input yields no chunks. Each emitted chunk is trimmed of
// trailing whitespace; with a non-zero overlap, each chunk after the first
// re-includes the final overlap characters of its predecessor.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var cur string  // accumulated raw text, starts with the overlap seed
	hasNew := false // cur holds at least one sentence beyond the seed

	flush := func() {
		if emitted := strings.TrimRight(cur, trailingWS); emitted != "" {
			chunks = append(chunks, emitted)
		}
		cur = tail(cur, s.overlap)
		hasNew = false
	}

	for _, sent := range sentences(text) {
		body := strings.TrimRight(sent, trailingWS)
		if body == "" {
			continue
		}
		if hasNew && len(cur)+len(body) > s.maxSize {
			flush()
		}
		cur += sent
		hasNew = true
		if len(strings.TrimRight(cur, trailingWS)) > s.maxSize {
			flush()
		}
	}
	if hasNew {
		flush()
	}

	return chunks
}

// sentences slices text into consecutive substrings whose concatenation is
// exactly the input. A sentence ends after '.', '!' or '?' followed by
// whitespace, or at a newline; the trailing whitespace run belongs to the
// sentence that precedes it.
func sentences(text string) []string {
	var out []string
	start, i := 0, 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '.' || c == '!' || c == '?':
			j := i + 1
			if j >= len(text) || isSpace(text[j]) {
				for j < len(text) && isSpace(text[j]) {
					j++
				}
				out = append(out, text[start:j])
				start, i = j, j
				continue
			}
			i++
		case c == '\n':
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			out = append(out, text[start:j])
			start, i = j, j
		default:
			i++
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// tail returns at most n trailing bytes of s, extended forward if needed so
// it never starts mid-rune.
func tail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
