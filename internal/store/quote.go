package store

import (
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// ErrInvalidIdentifier is returned for table names that are not plain
// MySQL identifiers.
var ErrInvalidIdentifier = zerr.New("invalid identifier (must contain only alphanumeric characters and underscores)")

// QuoteIdentifier quotes a MySQL identifier with backticks, doubling any
// backtick inside it.
// Example: "my_table" -> "`my_table`"
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier reports whether name contains only alphanumeric
// characters and underscores.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes name after validating it.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", zerr.With(zerr.Wrap(ErrInvalidIdentifier, ""), "name", name)
	}
	return QuoteIdentifier(name), nil
}
