package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// Cursor is a keyset position: the ordering timestamp plus the row id as tie-breaker.
type Cursor struct {
	At time.Time
	ID string
}

// EncodeToken creates an opaque page token from a timestamp and row id.
func EncodeToken(at time.Time, id string) string {
	tokenStr := fmt.Sprintf("%s|%s", at.Format(timeFormat), id)
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken. An empty token yields a nil cursor.
func DecodeToken(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid pagination token format (split)")
	}
	at, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (time parse): %w", err)
	}
	return &Cursor{At: at, ID: parts[1]}, nil
}

// ClampLimit bounds a requested page size.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
