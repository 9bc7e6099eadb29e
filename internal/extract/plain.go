package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// extractPlain decodes a UTF-8 text file. A leading byte order mark is
// dropped, and CRLF or lone CR line endings become "\n" so lines split the
// same way regardless of where the file was written.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: invalid byte at offset %d", ErrInvalidEncoding, invalidOffset(content))
	}
	s := strings.TrimPrefix(string(content), "\ufeff")
	return normalizeNewlines(s), nil
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func invalidOffset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(b)
}
