package errx_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("refresh: %w", errx.ErrInvalidRefreshToken.WithMessage("reused"))
	require.ErrorIs(t, wrapped, errx.ErrInvalidRefreshToken)
	require.NotErrorIs(t, wrapped, errx.ErrInvalidToken)
}

func TestFromFallsBackToInternal(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	e := errx.From(cause)
	require.Equal(t, http.StatusInternalServerError, e.Status)
	require.Equal(t, errx.CodeInternal, e.Code)
	require.ErrorIs(t, e, cause)

	require.Nil(t, errx.From(nil))
}

func TestWrite(t *testing.T) {
	t.Parallel()

	t.Run("application error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		errx.Write(rec, errx.ErrTokenExpired)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body errx.Body
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Success)
		require.Equal(t, "TOKEN_EXPIRED", body.Code)
	})

	t.Run("cause never leaks", func(t *testing.T) {
		rec := httptest.NewRecorder()
		errx.Write(rec, errors.New("password=hunter2"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "hunter2")
	})
}
