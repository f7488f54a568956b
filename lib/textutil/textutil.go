package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized `name` contains any of `matchers`,
// matchers are expected to already be normalized.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

var separatorRegex = regexp.MustCompile(`[\s\-.]+`)
var repeatedUnderscore = regexp.MustCompile(`_+`)

// SnakeCase lowercases `name` and joins its words with underscores,
// "Lezione 01 - Intro" becomes "lezione_01_intro".
func SnakeCase(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = separatorRegex.ReplaceAllString(name, "_")
	name = repeatedUnderscore.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// SanitizePathSegment makes `name` safe to use as a single path segment on
// the common filesystems. Names that are already safe are returned as is.
func SanitizePathSegment(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ".")
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
