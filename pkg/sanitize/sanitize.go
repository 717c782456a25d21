package sanitize

import (
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// maxTextPasses bounds how many layers of entity encoding Text unwraps
const maxTextPasses = 4

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy

	// undoes only the escaping bluemonday applies to plain punctuation
	punctuationUnescaper = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`)
)

// Text strips all markup from a user-supplied value and trims it.
// Entities are decoded so "AT&T" stays "AT&T", and decoded text is sanitized
// again until it is stable, so "&lt;b&gt;" cannot come back as a tag.
func Text(raw string) string {
	cur := strings.TrimSpace(raw)
	for i := 0; i < maxTextPasses && cur != ""; i++ {
		next := strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(cur)))
		if next == cur {
			return cur
		}
		cur = next
	}
	if cur == "" {
		return ""
	}
	return strings.TrimSpace(punctuationUnescaper.Replace(textSanitizer().Sanitize(cur)))
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
