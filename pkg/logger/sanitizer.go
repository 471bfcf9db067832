package logger

import (
	"regexp"
	"strings"
)

// Sensitive field patterns to filter from logs
var (
	passwordPattern = regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+[^\s]+`)
	tokenPattern    = regexp.MustCompile(`(?i)(token|jwt|bearer)[\s:=]+[^\s]+`)
	secretPattern   = regexp.MustCompile(`(?i)(secret|private[_-]?key)[\s:=]+[^\s]+`)
	invitePattern   = regexp.MustCompile(`(?i)(invite|invitation[_-]?code)[\s:=]+[^\s&]+`)

	// bare share tokens, e.g. in request paths
	shareTokenPattern = regexp.MustCompile(`\b[0-9a-f]{64}\b`)
	// invitation codes in /invitations/<code> paths
	invitationPathPattern = regexp.MustCompile(`(/invitations/)[0-9A-Fa-f]{8}\b`)
)

const redactedPlaceholder = "[REDACTED]"

// SanitizeLogMessage removes credentials, share tokens and invitation codes
// from log messages.
func SanitizeLogMessage(message string) string {
	message = passwordPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = tokenPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = secretPattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = invitePattern.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	message = shareTokenPattern.ReplaceAllString(message, redactedPlaceholder)
	message = invitationPathPattern.ReplaceAllString(message, "${1}"+redactedPlaceholder)
	return message
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"token", "jwt", "bearer",
	"secret", "private_key", "private-key",
	"invite", "invitation_code",
}

// SanitizeMap removes sensitive keys from a map
func SanitizeMap(data map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(data))
	for k, v := range data {
		lowerKey := strings.ToLower(k)
		isSensitive := false

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(lowerKey, sensitiveKey) {
				isSensitive = true
				break
			}
		}

		if isSensitive {
			sanitized[k] = redactedPlaceholder
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}

// TokenPrefix keeps enough of a token to correlate log lines without making
// it usable.
func TokenPrefix(token string) string {
	const keep = 8
	if len(token) <= keep {
		return redactedPlaceholder
	}
	return token[:keep] + "..."
}
