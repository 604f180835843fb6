package specification

import (
	"fmt"
	"strings"
	"unicode"
)

// Export is a downloadable markdown rendering of a specification
type Export struct {
	Filename string
	Content  string
}

func renderExport(appName, buildPrompt string) Export {
	return Export{
		Filename: slug(appName) + "-spec.md",
		Content:  fmt.Sprintf("# %s - spec\n\n%s\n", appName, buildPrompt),
	}
}

// slug lowercases name and joins its letter and digit runs with hyphens
func slug(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "app"
	}
	return b.String()
}
