// Package keyword classifies transcribed utterances against the configured
// ask and instruction keywords. Classification is pure: the same utterance
// and keywords always produce the same ParsedUtterance, and no outcome is
// an error.
package keyword

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"sttd/internal/domain"
)

// Classify inspects an utterance and produces its classification.
// Matching is case-insensitive and only at word boundaries; the emitted
// substrings preserve the original casing. The ask keyword is checked
// first and its precedence over the instruction keyword is fixed.
func Classify(utterance, instructionKeyword, askKeyword string) domain.ParsedUtterance {
	if askKeyword != "" {
		if query, ok := matchLeading(utterance, askKeyword); ok {
			return domain.ParsedUtterance{Kind: domain.UtteranceQuery, Query: query}
		}
	}

	if instructionKeyword != "" {
		if before, after, ok := splitAtKeyword(utterance, instructionKeyword); ok {
			return domain.ParsedUtterance{
				Kind:        domain.UtteranceInstructed,
				Content:     strings.TrimSpace(before),
				Instruction: strings.TrimSpace(after),
			}
		}
	}

	return domain.ParsedUtterance{Kind: domain.UtterancePlain, Content: utterance}
}

// matchLeading reports whether the utterance, after leading whitespace,
// starts with the keyword followed by a word boundary. The returned query
// is the trimmed remainder; an empty query is a valid match.
func matchLeading(utterance, kw string) (string, bool) {
	trimmed := strings.TrimLeftFunc(utterance, unicode.IsSpace)
	if len(trimmed) < len(kw) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(kw)], kw) {
		return "", false
	}
	rest := trimmed[len(kw):]
	if !boundaryBefore(rest) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// splitAtKeyword locates the first whole-word occurrence of the keyword
// anywhere in the utterance and returns the text before and after it.
func splitAtKeyword(utterance, kw string) (string, string, bool) {
	lowered := strings.ToLower(utterance)
	needle := strings.ToLower(kw)

	for offset := 0; offset <= len(lowered)-len(needle); {
		index := strings.Index(lowered[offset:], needle)
		if index < 0 {
			return "", "", false
		}
		start := offset + index
		end := start + len(needle)
		if boundaryAfter(utterance[:start]) && boundaryBefore(utterance[end:]) {
			return utterance[:start], utterance[end:], true
		}
		offset = start + 1
	}
	return "", "", false
}

// boundaryBefore reports whether the text that follows a candidate match
// starts at a word boundary: end of string or a non-alphanumeric rune.
func boundaryBefore(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !isWordRune(r)
}

// boundaryAfter reports whether the text preceding a candidate match ends
// at a word boundary.
func boundaryAfter(prefix string) bool {
	if prefix == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
