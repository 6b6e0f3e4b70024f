package metricscalculator

import (
	"regexp"
	"strings"
)

// NormalizeOptions controls the text cleanup applied before alignment.
// The zero value is NOT the default; use DefaultNormalizeOptions().
type NormalizeOptions struct {
	Lowercase          bool
	RemovePunctuation  bool // keeps apostrophes inside contractions (don't, it's)
	RemoveDigits       bool
	CollapseWhitespace bool
	// Replacements are applied first, before any other normalization step.
	Replacements []Replacement
}

// Replacement is a custom regex substitution applied during normalization.
type Replacement struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// DefaultNormalizeOptions returns the normalization used for WER scoring:
// lowercase, strip punctuation (preserving contractions), collapse whitespace.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		Lowercase:          true,
		RemovePunctuation:  true,
		RemoveDigits:       false,
		CollapseWhitespace: true,
	}
}

// punctuationRe matches any character that is not a letter, digit, whitespace
// or apostrophe. Apostrophes are handled separately so internal ones survive.
var (
	punctuationRe        = regexp.MustCompile(`[^\p{L}\p{N}\s']`)
	danglingApostropheRe = regexp.MustCompile(`'(\s|$)|(^|\s)'`)
	digitRe              = regexp.MustCompile(`\p{N}`)
	whitespaceRe         = regexp.MustCompile(`\s+`)
)

// Normalize applies the configured cleanup steps to text. It is idempotent:
// Normalize(Normalize(s)) == Normalize(s) for any options.
func Normalize(text string, opts NormalizeOptions) string {
	for _, r := range opts.Replacements {
		text = r.Pattern.ReplaceAllString(text, r.Replacement)
	}
	if opts.Lowercase {
		text = strings.ToLower(text)
	}
	if opts.RemovePunctuation {
		text = punctuationRe.ReplaceAllString(text, " ")
		// Apostrophes not flanked by letters are punctuation, not contractions.
		text = danglingApostropheRe.ReplaceAllString(text, " ")
	}
	if opts.RemoveDigits {
		text = digitRe.ReplaceAllString(text, " ")
	}
	if opts.CollapseWhitespace {
		text = whitespaceRe.ReplaceAllString(text, " ")
		text = strings.TrimSpace(text)
	}
	return text
}

// Tokenize splits normalized text into words, dropping empty tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}
