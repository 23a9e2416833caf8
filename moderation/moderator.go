// Package moderation masks censored words in message text. Matching is
// case-insensitive and ignores punctuation and spacing inside a word, so
// split or decorated spellings are still caught.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// NewModerator builds the Aho-Corasick automaton from the censored word list.
// An empty list yields a disabled moderator whose Censor is the identity.
func NewModerator(censoredWords []string, mask rune) (*Moderator, error) {
	if len(censoredWords) == 0 {
		return &Moderator{mask: mask}, nil
	}
	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = fold([]rune(word))
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, mask: mask}, nil
}

// Censor replaces every matched span of the original text with the mask rune.
// Spacing and punctuation inside a match are masked too, preserving length.
func (m *Moderator) Censor(original string) string {
	if m.matcher == nil {
		return original
	}
	origRunes := []rune(original)
	folded := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, r := range origRunes {
		if skippable(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	if len(folded) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(folded, false)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.mask
		}
	}
	return string(origRunes)
}

func fold(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if skippable(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

func skippable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
