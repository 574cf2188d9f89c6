//go:build unit

package queries_test

import (
	"testing"
	"time"

	"tutor-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 30, 0, 123456000, time.UTC)
	id := uuid.New()

	gotTime, gotID, err := queries.DecodeAfterCursor(queries.EncodeAfterCursor(at, id))
	require.NoError(t, err)
	assert.True(t, at.Equal(gotTime))
	assert.Equal(t, id, gotID)
}

func TestDecodeAfterCursor_Rejects(t *testing.T) {
	for _, c := range []string{"", "not-base64!!", "djI6MTIzLWFiYw==", "djE6YWJjLTEyMw=="} {
		_, _, err := queries.DecodeAfterCursor(c)
		assert.ErrorIs(t, err, queries.ErrInvalidCursor, c)
	}
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, queries.ValidateLimit(0))
	assert.Equal(t, 5, queries.ValidateLimit(5))
	assert.Equal(t, queries.MaxListLimit, queries.ValidateLimit(1000))
}
