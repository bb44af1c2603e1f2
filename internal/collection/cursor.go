package collection

import (
	"encoding/base64"
	"strconv"
)

// Cursor is a position in a collection listing
// Format: base64("<last id>")
// Ids are assigned in increasing order, so the last id seen is enough to resume.
type Cursor struct {
	After int64
}

// EncodeCursor creates a base64-encoded cursor string
// Returns empty string for zero-value cursor
func EncodeCursor(c Cursor) string {
	if c.After == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(c.After, 10)))
}

// DecodeCursor parses a cursor string
// Returns zero-value cursor and false if invalid or empty
func DecodeCursor(s string) (Cursor, bool) {
	if s == "" {
		return Cursor{}, false
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, false
	}

	after, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil || after < 0 {
		return Cursor{}, false
	}

	return Cursor{After: after}, true
}
