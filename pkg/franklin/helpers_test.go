package franklin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// framedReq mirrors the command envelope as the server sees it. DataArea is
// kept raw so tests can checksum the exact spliced bytes.
type framedReq struct {
	Lang     string          `json:"lang"`
	CmdType  int             `json:"cmdType"`
	EquipNo  string          `json:"equipNo"`
	Snno     int64           `json:"snno"`
	Len      int             `json:"len"`
	CRC      string          `json:"crc"`
	DataArea json.RawMessage `json:"dataArea"`
}

func decodeFramed(t *testing.T, r *http.Request) framedReq {
	t.Helper()
	var req framedReq
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func writeCode(t *testing.T, w http.ResponseWriter, code int, message string) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(apiResponse{Code: code, Message: message}))
}

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(apiResponse{Code: codeSuccess, Success: true, Result: raw}))
}

// writeDataArea answers a sendMqtt call whose response dataArea is inner.
func writeDataArea(t *testing.T, w http.ResponseWriter, inner any) {
	t.Helper()
	writeResult(t, w, map[string]any{"dataArea": inner})
}

func handleLogin(t *testing.T, mux *http.ServeMux) {
	t.Helper()
	mux.HandleFunc("/"+loginPath, func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, AccountInfo{UserID: 7, Token: "test-token", Version: "1.0"})
	})
}

// newTestClient stands up a fake cloud on mux and returns a client pointed at
// it. gatewayID may be empty to exercise auto-discovery.
func newTestClient(t *testing.T, mux *http.ServeMux, gatewayID string) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	fetcher := NewTokenFetcher("user@example.com", "hunter2", WithFetcherBaseURL(srv.URL))
	return New(fetcher, gatewayID, WithBaseURL(srv.URL))
}
