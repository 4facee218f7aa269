package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// Plain strips all markup from free text such as application messages,
// chat bodies and worker bios.
func Plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// RichText keeps the safe subset of HTML, used for job descriptions where
// employers paste formatted text.
func RichText(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}
