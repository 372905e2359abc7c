package privacy

import "strings"

// MaskToken masks a push token, keeping the gateway's envelope visible but
// hiding the opaque identifier inside it.
// Example: "ExponentPushToken[abcdef123456]" -> "ExponentPushToken[***3456]"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}

	open := strings.Index(token, "[")
	end := strings.LastIndex(token, "]")
	if open >= 0 && end > open {
		inner := token[open+1 : end]
		return token[:open+1] + maskTail(inner) + token[end:]
	}

	return maskTail(token)
}

// MaskUserID shortens a user identifier for log output.
// Example: "5f3a9c1e-..." -> "5f3a9c1e"
func MaskUserID(userID string) string {
	if len(userID) <= 8 {
		return userID
	}
	return userID[:8]
}

func maskTail(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return "***" + s[len(s)-4:]
}
