package moderation

import (
	"chat-room/errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
	log          *slog.Logger
}

type TextMapping struct {
	Normalized []rune
	OrigIdx    []int
}

// NewModerator initializes the Aho-Corasick automaton with a normalized version of the provided censored words list.
// Words made only of noise are ignored, ErrEmptyWords is returned when nothing is left to match.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	var patterns [][]rune
	for _, word := range censoredWords {
		if normalized := normalizeRunes([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, censoredChar: censoredChar, log: log}, nil
}

// ParseWords splits a comma separated list of censored words.
func ParseWords(list string) []string {
	var words []string
	for _, w := range strings.Split(list, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Censor identifies forbidden patterns and replaces the original characters while preserving spacing.
// It returns the censored text and the matched words in order of appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := m.normalize(original)
	if len(mapping.Normalized) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	spans := m.matcher.MultiPatternSearch(mapping.Normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	var words []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)

		if normStart < 0 || normEnd > len(mapping.OrigIdx) {
			continue
		}

		origStart := mapping.OrigIdx[normStart]
		origEnd := mapping.OrigIdx[normEnd-1] + 1

		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.censoredChar
		}
		words = append(words, string(span.Word))
	}

	if len(words) > 0 && m.log != nil {
		info := whatlanggo.Detect(original)
		m.log.Debug("Censored message", "words", len(words), "lang", info.Lang.Iso6391())
	}
	return string(origRunes), words
}

// normalize transforms the input string into a searchable format and tracks original rune positions.
func (m *Moderator) normalize(input string) TextMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return TextMapping{Normalized: norm, OrigIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak characters back to their standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
