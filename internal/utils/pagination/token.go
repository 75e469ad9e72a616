package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
)

const timeFormat = time.RFC3339Nano // Use a precise time format

// Cursor is the position of the last item of a page: its creation time and id.
// Ordering by (CreatedAt, ID) is total, so pages never skip or repeat items.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// EncodeToken creates an opaque base64 token from an entry's creation time and id.
func EncodeToken(createdAt time.Time, id string) string {
	return EncodeMultiFieldToken(createdAt.UTC().Format(timeFormat), id)
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	parts, err := DecodeMultiFieldToken(token)
	if err != nil {
		return Cursor{}, err
	}
	if len(parts) != 2 || parts[1] == "" {
		return Cursor{}, apperrors.NewValidationError("invalid pagination token format (split)")
	}
	createdAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return Cursor{}, apperrors.NewValidationError(fmt.Sprintf("invalid pagination token format (created_at parse): %v", err))
	}
	return Cursor{CreatedAt: createdAt, ID: parts[1]}, nil
}

// Before reports whether (createdAt, id) sorts strictly before the cursor,
// i.e. belongs on a later page of a newest-first listing.
func (c Cursor) Before(createdAt time.Time, id string) bool {
	if !createdAt.Equal(c.CreatedAt) {
		return createdAt.Before(c.CreatedAt)
	}
	return id < c.ID
}

// EncodeMultiFieldToken creates a token with any number of string fields
func EncodeMultiFieldToken(fields ...string) string {
	tokenStr := strings.Join(fields, "|")
	return base64.URLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeMultiFieldToken decodes a token into its component fields
func DecodeMultiFieldToken(token string) ([]string, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid pagination token format (base64 decode): %v", err))
	}
	return strings.Split(string(decodedBytes), "|"), nil
}
