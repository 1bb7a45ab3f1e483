package sanitize

import (
	"strings"
	"testing"
)

func TestText_RemovesAllHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "script tag",
			input:    `Hello <script>alert('xss')</script> World`,
			expected: `Hello  World`,
		},
		{
			name:     "inline event handler",
			input:    `<div onclick="alert('xss')">Click me</div>`,
			expected: `Click me`,
		},
		{
			name:     "iframe injection",
			input:    `Safe text <iframe src="evil.com"></iframe> more text`,
			expected: `Safe text  more text`,
		},
		{
			name:     "style tag with expression",
			input:    `<style>body{background:url(javascript:alert('xss'))}</style>Text`,
			expected: `Text`,
		},
		{
			name:     "mixed HTML tags",
			input:    `<b>Bold</b> <i>Italic</i> <a href="http://example.com">Link</a>`,
			expected: `Bold Italic Link`,
		},
		{
			name:     "plain text unchanged",
			input:    `Just plain text`,
			expected: `Just plain text`,
		},
		{
			name:     "ampersand and apostrophe survive",
			input:    `Rock & Roll at O'Malley's`,
			expected: `Rock & Roll at O'Malley's`,
		},
		{
			name:     "entities decoded after stripping",
			input:    `<p>Fish &amp; chips</p>`,
			expected: `Fish & chips`,
		},
		{
			name:     "empty string",
			input:    ``,
			expected: ``,
		},
		{
			name:     "image tag with onerror",
			input:    `<img src=x onerror="alert('xss')">`,
			expected: ``,
		},
		{
			name:     "data URI",
			input:    `<a href="data:text/html,<script>alert('xss')</script>">Click</a>`,
			expected: `Click`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Text(tt.input)
			if result != tt.expected {
				t.Errorf("Text(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestText_CommonXSSVectors(t *testing.T) {
	vectors := []struct {
		name  string
		input string
	}{
		{"Basic XSS", `<script>alert('XSS')</script>`},
		{"IMG onerror", `<img src=x onerror=alert('XSS')>`},
		{"SVG onload", `<svg onload=alert('XSS')>`},
		{"Body onload", `<body onload=alert('XSS')>`},
		{"Details ontoggle", `<details ontoggle=alert('XSS')><summary>Click</summary></details>`},
		{"JavaScript protocol", `<a href="javascript:alert('XSS')">Click</a>`},
		{"Meta refresh", `<meta http-equiv="refresh" content="0;url=javascript:alert('XSS')">`},
		{"Form action", `<form action="javascript:alert('XSS')"><input type="submit"></form>`},
	}

	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			result := Text(v.input)
			for _, d := range []string{"alert", "javascript:", "<script"} {
				if strings.Contains(result, d) {
					t.Errorf("Text(%q) still contains dangerous content %q: %q", v.input, d, result)
				}
			}
		})
	}
}

func BenchmarkText_ShortString(b *testing.B) {
	input := "Concert at <b>The Venue</b>"
	for i := 0; i < b.N; i++ {
		Text(input)
	}
}

func BenchmarkText_PlainString(b *testing.B) {
	input := "Monthly catch-up at the community hall"
	for i := 0; i < b.N; i++ {
		Text(input)
	}
}
