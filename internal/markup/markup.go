// ABOUTME: Converts rich-text diary entries (HTML) into markdown for prompts and terminal output.
// ABOUTME: Plain entries pass through untouched so they are not markdown-escaped.
package markup

import (
	"regexp"
	"strings"
	"sync"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var (
	tagRe            = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

	converterOnce sync.Once
	converter     *md.Converter
)

func shared() *md.Converter {
	converterOnce.Do(func() {
		converter = md.NewConverter("", true, nil)
		converter.Use(plugin.GitHubFlavored())
	})
	return converter
}

// IsHTML reports whether entry contains markup tags.
func IsHTML(entry string) bool {
	return tagRe.MatchString(entry)
}

// ToMarkdown renders entry as markdown. Entries without tags are returned
// trimmed. If conversion fails the tags are stripped instead.
func ToMarkdown(entry string) string {
	if !IsHTML(entry) {
		return strings.TrimSpace(entry)
	}
	out, err := shared().ConvertString(entry)
	if err != nil {
		return strings.TrimSpace(tagRe.ReplaceAllString(entry, ""))
	}
	return strings.TrimSpace(excessiveLinesRe.ReplaceAllString(out, "\n\n"))
}

// Preview returns the first line of the entry's markdown, cut to max runes
// with an ellipsis. A max of zero or less disables truncation.
func Preview(entry string, max int) string {
	text := ToMarkdown(entry)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i]) + " …"
	}
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
