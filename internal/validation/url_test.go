package validation

import (
	"strings"
	"testing"
)

func TestEndpointURL_Valid(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"HTTP URL", "http://example.com"},
		{"HTTPS URL", "https://www.7timer.info"},
		{"Trailing slash", "https://date.nager.at/"},
		{"Path prefix", "https://example.com/nominatim"},
		{"Port", "https://example.com:8080"},
		{"Localhost", "http://localhost:3000"},
		{"IP address", "https://192.168.1.1"},
		{"IPv6", "https://[::1]:8080"},
		{"Empty URL (allowed)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := EndpointURL("WEATHER_API_URL", tt.url); err != nil {
				t.Errorf("EndpointURL(%q) returned error: %v", tt.url, err)
			}
		})
	}
}

func TestEndpointURL_Invalid(t *testing.T) {
	tests := []struct {
		name          string
		url           string
		expectedError string
	}{
		{"No scheme", "example.com", "must include a scheme"},
		{"Invalid scheme", "ftp://example.com", "scheme must be http or https"},
		{"No host", "https://", "must include a host"},
		{"Malformed URL", "ht!tp://example.com", "invalid URL format"},
		{"Just scheme", "https", "must include a scheme"},
		{"With query", "https://example.com?key=abc", "must not contain query parameters"},
		{"With fragment", "https://example.com#section", "must not contain a fragment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EndpointURL("NOMINATIM_URL", tt.url)
			if err == nil {
				t.Errorf("EndpointURL(%q) should return error", tt.url)
				return
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("Error message %q should contain %q", err.Error(), tt.expectedError)
			}
		})
	}
}

func TestURLError_ErrorMessage(t *testing.T) {
	err := URLError{
		Setting: "SERVER_BASE_URL",
		Message: "URL must include a host",
		URL:     "https://",
	}

	expected := "SERVER_BASE_URL: URL must include a host (url: https://)"
	if err.Error() != expected {
		t.Errorf("Error message mismatch:\ngot:  %s\nwant: %s", err.Error(), expected)
	}
}

func BenchmarkEndpointURL(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = EndpointURL("WEATHER_API_URL", "https://www.7timer.info")
	}
}
