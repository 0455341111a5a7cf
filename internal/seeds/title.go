package seeds

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title capitalises every run of letters in name, so "ubuntu.noble"
// becomes "Ubuntu.Noble" and "desktop-common" becomes "Desktop-Common".
func Title(name string) string {
	caser := cases.Title(language.Und)

	var b strings.Builder
	b.Grow(len(name))
	start := -1
	for i, r := range name {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(name[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(name[start:]))
	}
	return b.String()
}
