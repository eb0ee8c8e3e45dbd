package bluequery

import (
	"strings"
	"unicode/utf8"
)

// Secure checks raw against the length and format constraints of d and
// returns it trimmed. Length is counted in characters, before trimming.
func Secure(raw string, d *Definition) (string, error) {
	if d.MaxSize > 0 && utf8.RuneCountInString(raw) > d.MaxSize {
		return "", newParamError(ValueTooLong, d.Name)
	}
	if d.Format != nil && !d.Format.MatchString(raw) {
		return "", newParamError(InvalidFormat, d.Name)
	}
	return strings.TrimSpace(raw), nil
}

// SecureNullable is Secure for an optional value: nil yields "".
func SecureNullable(raw *string, d *Definition) (string, error) {
	if raw == nil {
		return "", nil
	}
	return Secure(*raw, d)
}
