package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Pagination cursors encode the (join_ts, id) position of the last session on
// a page. The timestamp uses TimeFormat so the encoded form sorts the same
// way the rows do.

// EncodeCursor packs a session position into a URL-safe opaque token.
func EncodeCursor(t time.Time, id int64) string {
	raw := t.UTC().Format(TimeFormat) + "|" + strconv.FormatInt(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a token produced by EncodeCursor. Malformed input of
// any kind yields ErrInvalidCursor.
func DecodeCursor(cur string) (time.Time, int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(cur)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: not base64url", ErrInvalidCursor)
	}

	tsStr, idStr, ok := strings.Cut(string(b), "|")
	if !ok {
		return time.Time{}, 0, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}

	t, err := time.Parse(TimeFormat, tsStr)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: bad timestamp", ErrInvalidCursor)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: bad id", ErrInvalidCursor)
	}

	return t, id, nil
}
