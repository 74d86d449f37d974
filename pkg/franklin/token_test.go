package franklin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFetcher(t *testing.T) {
	t.Run("sends hashed password and keeps account info", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "user@example.com", r.PostForm.Get("account"))
			// md5("hunter2")
			assert.Equal(t, "2ab96390c7dbe3439de74d0c9b0b1767", r.PostForm.Get("password"))
			assert.Equal(t, "1", r.PostForm.Get("type"))
			writeResult(t, w, AccountInfo{UserID: 42, Token: "abc", Version: "2.1"})
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		f := NewTokenFetcher("user@example.com", "hunter2", WithFetcherBaseURL(srv.URL))
		require.Nil(t, f.AccountInfo())

		token, err := f.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc", token)

		info := f.AccountInfo()
		require.NotNil(t, info)
		assert.Equal(t, 42, info.UserID)
		assert.Equal(t, "2.1", info.Version)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
			writeCode(t, w, 401, "Incorrect password")
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		f := NewTokenFetcher("user@example.com", "wrong", WithFetcherBaseURL(srv.URL))
		_, err := f.Token(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.Code)
		assert.Equal(t, "Incorrect password", apiErr.Message)
	})

	t.Run("account locked", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
			writeCode(t, w, 400, "Account locked, try again later")
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		f := NewTokenFetcher("user@example.com", "hunter2", WithFetcherBaseURL(srv.URL))
		_, err := f.Token(context.Background())
		assert.ErrorIs(t, err, ErrAccountLocked)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing username", func(t *testing.T) {
		f := NewTokenFetcher("", "hunter2")
		_, err := f.Token(context.Background())
		require.Error(t, err)
	})

	t.Run("malformed login body", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>gateway error</html>"))
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		f := NewTokenFetcher("user@example.com", "hunter2", WithFetcherBaseURL(srv.URL))
		_, err := f.Token(context.Background())
		require.Error(t, err)
		var apiErr *APIError
		assert.False(t, errors.As(err, &apiErr))
	})
}
