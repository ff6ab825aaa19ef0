package limiter

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	t.Run("x-forwarded-for first segment", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1, 10.0.0.2")
		r.Header.Set("X-Real-IP", "10.0.0.9")
		require.Equal(t, "203.0.113.7", ClientIP(r))
	})

	t.Run("x-forwarded-for single value", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Forwarded-For", " 203.0.113.7 ")
		require.Equal(t, "203.0.113.7", ClientIP(r))
	})

	t.Run("x-real-ip fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Real-IP", "203.0.113.8")
		require.Equal(t, "203.0.113.8", ClientIP(r))
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "198.51.100.4:54321"
		require.Equal(t, "198.51.100.4", ClientIP(r))
	})

	t.Run("remote addr without port", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "198.51.100.4"
		require.Equal(t, "198.51.100.4", ClientIP(r))
	})
}

func TestLoginIdentifier(t *testing.T) {
	t.Parallel()

	require.Equal(t, "10.0.0.1:user@example.com", LoginIdentifier("10.0.0.1", "user@example.com"))
}
