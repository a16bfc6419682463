package privacy

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"swarmsync/internal/constants"
)

// MaskSessionID keeps the two-character prefix and the last characters of a
// session, blinded or group id.
// Example: "05d871...8c2a1b" -> "05****...****8c2a1b"
func MaskSessionID(id string) string {
	if id == "" {
		return ""
	}
	keep := constants.DefaultSessionIDMaskLength / 2
	if len(id) <= 2+keep {
		return maskString(id, 0)
	}
	return id[:2] + strings.Repeat("*", len(id)-2-keep) + id[len(id)-keep:]
}

// MaskHash shows only the tail of a server hash or similar opaque identifier.
func MaskHash(hash string) string {
	if hash == "" {
		return ""
	}
	return maskString(hash, constants.DefaultSessionIDMaskLength/2)
}

// MaskBody replaces message text with its length and a short prefix.
// Example: "hello there, how are you" -> "hello th…(24 chars)"
func MaskBody(body string) string {
	if body == "" {
		return ""
	}
	n := utf8.RuneCountInString(body)
	runes := []rune(body)
	preview := constants.DefaultBodyPreviewLength / 2
	if n <= preview {
		return strings.Repeat("*", n)
	}
	return string(runes[:preview]) + "…(" + strconv.Itoa(n) + " chars)"
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			masked[k] = v
			continue
		}
		switch k {
		case "sender", "thread_id", "author_id", "session_id", "group_id", "recipient":
			masked[k] = MaskSessionID(s)
		case "server_hash", "unique_identifier":
			masked[k] = MaskHash(s)
		case "body", "text":
			masked[k] = MaskBody(s)
		default:
			masked[k] = v
		}
	}

	return masked
}
