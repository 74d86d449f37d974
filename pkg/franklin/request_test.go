package franklin

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRefreshesTokenOnce(t *testing.T) {
	var logins, calls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
		n := logins.Add(1)
		writeResult(t, w, AccountInfo{Token: fmt.Sprintf("tok-%d", n)})
	})
	mux.HandleFunc("/api/thing", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("loginToken") == "tok-1" {
			writeCode(t, w, codeTokenExpired, "token expired")
			return
		}
		writeResult(t, w, map[string]string{"ok": "yes"})
	})
	c := newTestClient(t, mux, "GW123")

	var dest map[string]string
	require.NoError(t, c.get(context.Background(), "api/thing", nil, &dest))
	assert.Equal(t, "yes", dest["ok"])
	assert.EqualValues(t, 2, logins.Load())
	assert.EqualValues(t, 2, calls.Load())
}

func TestDoSecondExpirySurfaces(t *testing.T) {
	var calls atomic.Int64
	mux := http.NewServeMux()
	handleLogin(t, mux)
	mux.HandleFunc("/api/thing", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCode(t, w, codeTokenExpired, "token expired")
	})
	c := newTestClient(t, mux, "GW123")

	err := c.get(context.Background(), "api/thing", nil, nil)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.EqualValues(t, 2, calls.Load(), "must retry exactly once")
}

func TestDoTransportUnauthorized(t *testing.T) {
	// Some deployments reject a stale token at the transport level instead of
	// answering with an application code.
	var logins atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
		n := logins.Add(1)
		writeResult(t, w, AccountInfo{Token: fmt.Sprintf("tok-%d", n)})
	})
	mux.HandleFunc("/api/thing", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("loginToken") == "tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeResult(t, w, nil)
	})
	c := newTestClient(t, mux, "GW123")

	require.NoError(t, c.get(context.Background(), "api/thing", nil, nil))
	assert.EqualValues(t, 2, logins.Load())
}

func TestDoClassifiesCodes(t *testing.T) {
	tests := []struct {
		code    int
		message string
		want    error
	}{
		{codeDeviceTimeout, "Equipment reporting timeout", ErrDeviceTimeout},
		{codeGatewayOffline, "Gateway offline", ErrGatewayOffline},
		{555, "something new", ErrUnexpectedCode},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("code %d", tt.code), func(t *testing.T) {
			mux := http.NewServeMux()
			handleLogin(t, mux)
			mux.HandleFunc("/api/thing", func(w http.ResponseWriter, r *http.Request) {
				writeCode(t, w, tt.code, tt.message)
			})
			c := newTestClient(t, mux, "GW123")

			err := c.get(context.Background(), "api/thing", nil, nil)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestDoMalformedBody(t *testing.T) {
	mux := http.NewServeMux()
	handleLogin(t, mux)
	mux.HandleFunc("/api/thing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	c := newTestClient(t, mux, "GW123")

	err := c.get(context.Background(), "api/thing", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed response")
}

func TestDoCommonQueryParams(t *testing.T) {
	mux := http.NewServeMux()
	handleLogin(t, mux)
	mux.HandleFunc("/api/thing", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GW123", r.URL.Query().Get("gatewayId"))
		assert.Equal(t, "en_US", r.URL.Query().Get("lang"))
		writeResult(t, w, nil)
	})
	c := newTestClient(t, mux, "GW123")
	require.NoError(t, c.get(context.Background(), "api/thing", nil, nil))
}
