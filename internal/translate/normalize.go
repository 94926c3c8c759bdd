package translate

import "strings"

// TabPlaceholder stands in for literal tabs in cache keys, cached values and backend input.
const TabPlaceholder = "<tab>"

const ideographicSpace = "　"

// urlPunct is the punctuation allowed inside a URL span, besides ASCII letters and digits.
const urlPunct = "&$+.,/:;=_?@#-"

// Normalize swaps tabs for the placeholder, full-width spaces for ASCII spaces,
// and trims surrounding whitespace.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\t", TabPlaceholder)
	text = strings.ReplaceAll(text, ideographicSpace, " ")
	return strings.TrimSpace(text)
}

// Denormalize restores tabs. The full-width space substitution is not reversed.
func Denormalize(text string) string {
	return strings.ReplaceAll(text, TabPlaceholder, "\t")
}

// SplitAtURL splits text at the first "http" into the text before it, the
// longest run of URL characters starting there, and the remainder.
// found is false when text has no "http".
func SplitAtURL(text string) (left, url, right string, found bool) {
	idx := strings.Index(text, "http")
	if idx < 0 {
		return text, "", "", false
	}
	left = text[:idx]
	rest := text[idx:]

	end := 0
	for end < len(rest) && isURLByte(rest[end]) {
		end++
	}
	return left, rest[:end], rest[end:], true
}

func isURLByte(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	default:
		return strings.IndexByte(urlPunct, b) >= 0
	}
}
