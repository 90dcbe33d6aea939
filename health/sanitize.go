package health

import (
	"regexp"
	"strings"
)

// Redaction applied to every error message before it enters a Status.
// Health payloads leave the process through /status and logs, so connection
// strings, paths, and credentials must not survive the conversion.
var redactions = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`https?://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`nats://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`wss?://[^\s]+`), "[URL]"},
	{regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`), "[PATH]"},
	{regexp.MustCompile(`[A-Z]:\\[^:\s]+`), "[PATH]"},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`), "[IP]"},
	{regexp.MustCompile(`:\d{2,5}\b`), "[PORT]"},
}

var credentialPattern = regexp.MustCompile(
	`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)

var credentialHints = []string{"password", "token", "key", "secret", "credential"}

// sanitizeMessage strips URLs, file paths, addresses, and credential pairs
// from an error message. URLs go first since they contain path segments.
func sanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	for _, r := range redactions {
		msg = r.pattern.ReplaceAllString(msg, r.repl)
	}

	lower := strings.ToLower(msg)
	for _, hint := range credentialHints {
		if strings.Contains(lower, hint) {
			msg = credentialPattern.ReplaceAllString(msg, "[REDACTED]")
			break
		}
	}
	return msg
}
