package logging

import (
	"regexp"
)

// Sanitizer redacts credentials from log messages. Service account key files
// and OAuth tokens are the secrets this program handles.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
}

// NewSanitizer creates a sanitizer with default patterns.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// PEM private key, raw or JSON-escaped as in service account files
		`-----BEGIN (?:RSA )?PRIVATE KEY-----(?s:.*?)-----END (?:RSA )?PRIVATE KEY-----`,
		// Service account key id
		`(?i)"private_key_id"\s*:\s*"[0-9a-f]{20,}"`,
		// OAuth access token
		`ya29\.[0-9A-Za-z_-]{20,}`,
		// OAuth refresh token
		`1//[0-9A-Za-z_-]{20,}`,
		// Google API key
		`AIza[0-9A-Za-z_-]{35}`,
		`(?i)bearer\s+[0-9A-Za-z._-]{20,}`,
		`(?i)client[_-]?secret["'\s:=]+[0-9A-Za-z_-]{16,}`,
		`(?i)api[_-]?key["'\s:=]+[0-9A-Za-z_-]{20,}`,
		`(?i)password["'\s:=]+[^\s"']{8,}`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	result := input
	for _, pattern := range s.patterns {
		result = pattern.ReplaceAllString(result, s.redacted)
	}
	return result
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}
