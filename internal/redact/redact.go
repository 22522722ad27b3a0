// Package redact scrubs likely secrets from text before it is logged.
package redact

import "regexp"

const placeholder = "[REDACTED]"

// Patterns are matched case-insensitively where it makes sense. Each
// match is replaced wholesale; callers only get the placeholder.
var patterns = []*regexp.Regexp{
	// key=value style credentials
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|secret|password|passwd|pwd)["'\s:=]+[^"'\s]{4,}`),
	// Bearer headers
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_.~+/-]{16,}`),
	// JWTs
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
	// GitHub and AWS key shapes
	regexp.MustCompile(`gh[pou]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// PEM private key headers
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
}

// Secrets replaces anything that looks like a credential with a
// placeholder. Safe to call on arbitrary user or device output.
func Secrets(text string) string {
	for _, p := range patterns {
		text = p.ReplaceAllString(text, placeholder)
	}
	return text
}

// ContainsSecret reports whether text matches any secret pattern.
func ContainsSecret(text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
