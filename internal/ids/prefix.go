package ids

import "regexp"

// prefixPattern matches a store id prefix: two or more ASCII lowercase
// letters/digits with at least one letter.
var prefixPattern = regexp.MustCompile(`^[a-z0-9]*[a-z][a-z0-9]*$`)

// ValidPrefix reports whether p is a legal id prefix.
func ValidPrefix(p string) bool {
	return len(p) >= 2 && prefixPattern.MatchString(p)
}
