// Package sanitize strips markup from user-supplied event text before it is
// handed to clients that may render it, such as calendar applications.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// Text strips all HTML and decodes entities, so plain text such as
// "Rock & Roll" comes back unchanged. The result is plain text and must be
// escaped again before it is embedded in HTML.
func Text(input string) string {
	if !strings.ContainsAny(input, "<>&") {
		return input
	}
	return html.UnescapeString(StrictPolicy.Sanitize(input))
}
