package swap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	require.True(t, retryable(&pgconn.PgError{Code: "40001"}))
	require.True(t, retryable(&pgconn.PgError{Code: "40P01"}))
	require.False(t, retryable(&pgconn.PgError{Code: "23505"}))
	require.False(t, retryable(errors.New("plain")))
	require.False(t, retryable(nil))

	// wrapped serialization failures still retry
	wrapped := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	require.True(t, retryable(wrapped))
}

func TestCode(t *testing.T) {
	require.Equal(t, ErrConflict, Code(makeErr(ErrConflict, "lost the race")))
	require.Equal(t, ErrCode(""), Code(errors.New("uncoded")))

	wrapped := fmt.Errorf("create: %w", makeErr(ErrValidation, "bad"))
	require.Equal(t, ErrValidation, Code(wrapped))
	require.Equal(t, "create: bad", wrapped.Error())
}
