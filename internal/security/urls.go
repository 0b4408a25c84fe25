package security

import "regexp"

// urlPattern matches an http/https scheme followed by any run of
// non-whitespace. Deliberately loose: the analyzers decide whether a
// token is dangerous, the extractor only finds candidates.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// ExtractURLs returns every URL token in text in the order it appears.
// It is a pure function: re-scanning the same text yields the same
// sequence, and the input is never modified.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}
