// Package wordpiece implements the BERT uncased tokenizer: basic
// pre-tokenisation (cleaning, lower-casing, accent stripping, punctuation
// and CJK splitting) followed by greedy longest-match WordPiece.
//
// Without a vocabulary the tokenizer counts basic tokens only, which is
// a lower bound on the WordPiece count.
package wordpiece

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/dquery/internal/core/ports/driven"
)

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

// Special tokens.
const (
	TokenCLS = "[CLS]"
	TokenSEP = "[SEP]"
	TokenPAD = "[PAD]"
	TokenUNK = "[UNK]"

	continuationPrefix = "##"
	maxWordRunes       = 100
)

// Tokenizer splits text into WordPiece tokens.
type Tokenizer struct {
	vocab map[string]int
}

// New creates a tokenizer over vocab. A nil vocab gives basic tokenisation.
func New(vocab map[string]int) *Tokenizer {
	return &Tokenizer{vocab: vocab}
}

// NewBasic creates a tokenizer without a vocabulary.
func NewBasic() *Tokenizer {
	return New(nil)
}

// FromFile loads a vocab.txt (one token per line, id = line number).
func FromFile(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vocab: %w", err)
	}
	defer f.Close()

	vocab, err := ReadVocab(f)
	if err != nil {
		return nil, fmt.Errorf("reading vocab %s: %w", path, err)
	}
	return New(vocab), nil
}

// ReadVocab parses a vocab.txt stream.
func ReadVocab(r io.Reader) (map[string]int, error) {
	vocab := make(map[string]int)
	sc := bufio.NewScanner(r)
	id := 0
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for _, special := range []string{TokenCLS, TokenSEP, TokenPAD, TokenUNK} {
		if _, ok := vocab[special]; !ok {
			return nil, fmt.Errorf("vocab is missing %s", special)
		}
	}
	return vocab, nil
}

// Tokenize returns the token strings for text, without special tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	var out []string
	for _, w := range basicTokens(text) {
		out = append(out, t.pieces(w.text)...)
	}
	return out
}

// Count returns the number of tokens in text, excluding special tokens.
func (t *Tokenizer) Count(text string) int {
	return len(t.Tokenize(text))
}

// Truncate returns the longest prefix of text, ending on a word boundary,
// whose token count does not exceed maxTokens.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	n := 0
	for _, w := range basicTokens(text) {
		k := len(t.pieces(w.text))
		if n+k > maxTokens {
			return text[:w.start]
		}
		n += k
	}
	return text
}

// pieces splits one basic token with greedy longest-match-first.
func (t *Tokenizer) pieces(word string) []string {
	if t.vocab == nil {
		return []string{word}
	}
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{TokenUNK}
	}

	var out []string
	for start := 0; start < len(runes); {
		end := len(runes)
		match := ""
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = continuationPrefix + sub
			}
			if _, ok := t.vocab[sub]; ok {
				match = sub
				break
			}
			end--
		}
		if match == "" {
			return []string{TokenUNK}
		}
		out = append(out, match)
		start = end
	}
	return out
}

// word is a basic token and the byte offset where it starts in the input.
type word struct {
	text  string
	start int
}

// basicTokens runs BERT basic tokenisation and keeps source offsets.
func basicTokens(text string) []word {
	var (
		out   []word
		buf   []rune
		start = -1
	)
	flush := func() {
		if start < 0 {
			return
		}
		if w := normalise(string(buf)); w != "" {
			out = append(out, word{text: w, start: start})
		}
		buf = buf[:0]
		start = -1
	}

	for i, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
			continue
		case isWhitespace(r):
			flush()
		case isPunctuation(r) || isCJK(r):
			flush()
			if w := normalise(string(r)); w != "" {
				out = append(out, word{text: w, start: i})
			}
		default:
			if start < 0 {
				start = i
			}
			buf = append(buf, r)
		}
	}
	flush()
	return out
}

// normalise lower-cases and strips accents (NFD, drop Mn).
func normalise(s string) string {
	s = strings.ToLower(s)
	decomposed := norm.NFD.String(s)
	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf)
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
