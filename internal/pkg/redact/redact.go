// Package redact masks secrets in command lines and log text.
package redact

import "regexp"

// Marker replaces every masked value.
const Marker = "[REDACTED]"

type rule struct {
	re   *regexp.Regexp
	repl string
}

var rules = []rule{
	{regexp.MustCompile(`(--cookies(?:-from-browser)?(?:=|\s+))("[^"]*"|'[^']*'|\S+)`), "${1}" + Marker},
	{regexp.MustCompile(`(?i)(authorization:\s*bearer\s+)[^\s"']+`), "${1}" + Marker},
	{regexp.MustCompile(`(?i)(x-api-key:\s*)[^\s"']+`), "${1}" + Marker},
	{regexp.MustCompile(`(?i)([?&](?:api_key|apikey|key|token|access_token|auth)=)[^&\s"']+`), "${1}" + Marker},
	{regexp.MustCompile(`(--password=)('[^']*'|"[^"]*"|\S+)`), "${1}" + Marker},
	{regexp.MustCompile(`(--encrypt\s+)('[^']*'|"[^"]*"|\S+)(\s+)('[^']*'|"[^"]*"|\S+)`), "${1}" + Marker + "${3}" + Marker},
	{regexp.MustCompile(`\b(?:sk|rk)-[A-Za-z0-9_\-]{8,}`), Marker},
}

// String masks every known secret shape in s.
func String(s string) string {
	for _, r := range rules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// Strings masks every element in place and returns the slice.
func Strings(values []string) []string {
	for i, v := range values {
		values[i] = String(v)
	}
	return values
}
