package logger

import (
	"regexp"
	"strings"
)

var dsnCredentialRegex = regexp.MustCompile(`(://[^:/@\s]+):[^@\s]+@`)

// redactSecretValue masks credential-bearing values before they reach the log
// stream. Connection-string passwords and any field whose key names a secret
// are masked; everything else passes through unchanged.
func redactSecretValue(key, val string) string {
	k := strings.ToLower(key)
	if strings.Contains(k, "password") || strings.Contains(k, "api_key") ||
		strings.Contains(k, "secret") || strings.Contains(k, "token") {
		return RedactSecret(val)
	}
	// Mask passwords embedded in DSNs logged under generic keys
	return dsnCredentialRegex.ReplaceAllString(val, "$1:***@")
}

// RedactSecret masks a secret for safe logging, keeping a short prefix so
// operators can tell which credential was in play.
// "sk_live_abcdef123456" → "sk_l***"
func RedactSecret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}
