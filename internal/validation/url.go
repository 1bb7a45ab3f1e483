// Package validation checks endpoint settings before anything dials them.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLError reports a malformed endpoint setting.
type URLError struct {
	Setting string
	Message string
	URL     string
}

func (e URLError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Setting, e.Message, e.URL)
}

// EndpointURL checks that raw is an absolute http(s) URL that request paths
// can be appended to. A path prefix is fine; a query or fragment would be
// lost on join and is rejected. Empty is allowed.
func EndpointURL(setting, raw string) error {
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return URLError{Setting: setting, Message: "invalid URL format", URL: raw}
	}
	if parsed.Scheme == "" {
		return URLError{Setting: setting, Message: "URL must include a scheme (http:// or https://)", URL: raw}
	}
	if parsed.Host == "" {
		return URLError{Setting: setting, Message: "URL must include a host", URL: raw}
	}
	if scheme := strings.ToLower(parsed.Scheme); scheme != "http" && scheme != "https" {
		return URLError{Setting: setting, Message: "URL scheme must be http or https", URL: raw}
	}
	if parsed.RawQuery != "" {
		return URLError{Setting: setting, Message: "URL must not contain query parameters", URL: raw}
	}
	if parsed.Fragment != "" {
		return URLError{Setting: setting, Message: "URL must not contain a fragment", URL: raw}
	}
	return nil
}
