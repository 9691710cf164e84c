// Package symbol guesses a ticker symbol from free-form text.
package symbol

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/dyike/CortexAdvisor/consts"
)

var tokenPattern = regexp.MustCompile(fmt.Sprintf(`\b[A-Z]{%d,%d}\b`, consts.MinSymbolLen, consts.MaxSymbolLen))

// Tokens returns every 2-5 letter word of text after upper-casing it, in
// order of appearance.
func Tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToUpper(text), -1)
}

// Extract returns the first token that is a known symbol. When none is known
// it falls back to the first token, even when that is an ordinary word.
// ok is false when text has no candidate at all.
func Extract(text string, known map[string]struct{}) (string, bool) {
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return "", false
	}
	for _, tok := range tokens {
		if _, hit := known[tok]; hit {
			return tok, true
		}
	}
	return tokens[0], true
}

// NewSet builds a lookup set from symbols, upper-casing and trimming them.
func NewSet(symbols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// Extractor applies Extract with a known-symbol set that can be swapped while
// other goroutines are extracting.
type Extractor struct {
	known atomic.Pointer[map[string]struct{}]
}

// NewExtractor creates an extractor. With no symbols the built-in list is used.
func NewExtractor(known ...string) *Extractor {
	e := &Extractor{}
	if len(known) == 0 {
		known = consts.KnownSymbols
	}
	e.SetKnown(known)
	return e
}

// SetKnown replaces the preferred symbols.
func (e *Extractor) SetKnown(symbols []string) {
	set := NewSet(symbols)
	e.known.Store(&set)
}

// Known returns the number of preferred symbols.
func (e *Extractor) Known() int {
	return len(*e.known.Load())
}

// Extract guesses the symbol mentioned in text.
func (e *Extractor) Extract(text string) (string, bool) {
	return Extract(text, *e.known.Load())
}
