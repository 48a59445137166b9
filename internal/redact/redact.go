// Package redact scrubs sensitive values from strings before they are
// logged or placed in error responses: connection string credentials,
// analyzer API keys, bearer tokens, JWTs and inline recitation audio.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted values.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedAudioPlaceholder      = "[REDACTED_AUDIO]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Rules run in order. Audio and JWTs go first so that the generic key
// pattern does not eat half of a token and leave the rest behind.
var rules = []rule{
	// Inline audio, either as a data URL or as a long bare base64 run.
	{regexp.MustCompile(`data:audio/[\w.+-]+;base64,[A-Za-z0-9+/=]+`), RedactedAudioPlaceholder},
	{regexp.MustCompile(`[A-Za-z0-9+/]{200,}={0,2}`), RedactedAudioPlaceholder},

	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9_\-.~+/]{8,}=*`), "${1}" + RedactedKeyPlaceholder},

	// Credentials embedded in postgres and redis URLs.
	{
		regexp.MustCompile(`(?i)\b(postgres|postgresql|redis|rediss|mysql)://[^@/\s]+@`),
		"${1}://" + RedactedCredentialPlaceholder + "@",
	},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), "${1}${2}" + RedactedCredentialPlaceholder},

	// Google API keys, as sent to Gemini.
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), RedactedKeyPlaceholder},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|access[_-]?key)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		"${1}${2}" + RedactedKeyPlaceholder,
	},

	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},

	// Stack trace fragments and absolute file paths.
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
	{regexp.MustCompile(`(?:^|\s)(/[\w.-]+){2,}`), " " + RedactedPathPlaceholder},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}

	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
