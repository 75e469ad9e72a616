package pagination

import (
	"testing"
	"time"

	"github.com/SscSPs/exchange_ledger/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	createdAt := time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(createdAt, "0b6e6f0e-entry")
	assert.NotEmpty(t, token, "Token should not be empty")

	cursor, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(cursor.CreatedAt), "Created at time should match after decode")
	assert.Equal(t, "0b6e6f0e-entry", cursor.ID)

	// Non-UTC times round-trip to the same instant
	local := time.Date(2024, 1, 2, 3, 4, 5, 6, time.FixedZone("X", 3600))
	cursor, err = DecodeToken(EncodeToken(local, "e"))
	require.NoError(t, err)
	assert.True(t, local.Equal(cursor.CreatedAt))
}

func TestDecodeTokenError(t *testing.T) {
	_, err := DecodeToken("this is not base64!")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "base64 decode")

	_, err = DecodeToken(EncodeMultiFieldToken("2023-05-15T00:00:00Z"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "split")

	_, err = DecodeToken(EncodeMultiFieldToken("notadate", "e1"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "created_at parse")
}

func TestCursor_Before(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Cursor{CreatedAt: t0, ID: "m"}

	assert.True(t, c.Before(t0.Add(-time.Second), "z"))
	assert.False(t, c.Before(t0.Add(time.Second), "a"))
	assert.True(t, c.Before(t0, "a"))
	assert.False(t, c.Before(t0, "m"))
	assert.False(t, c.Before(t0, "z"))
}

func TestMultiFieldToken(t *testing.T) {
	token := EncodeMultiFieldToken("a", "b", "c")
	fields, err := DecodeMultiFieldToken(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
}
