package media

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)

// multiSpace matches multiple consecutive spaces.
var multiSpace = regexp.MustCompile(`\s+`)

// SanitizeTitle turns a batch title into a safe destination directory name.
// Accents are folded to ASCII so "Shingeki no Kyojin: Über" and its
// unaccented spelling land in the same directory.
func SanitizeTitle(title string) string {
	title = removeAccents(title)
	title = strings.ReplaceAll(title, "\x00", "")
	title = illegalChars.ReplaceAllString(title, " ")
	title = multiSpace.ReplaceAllString(title, " ")
	return strings.Trim(title, " .")
}

// removeAccents strips combining marks after NFD decomposition.
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}
