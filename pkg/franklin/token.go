package franklin

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwhmon/fwhmon/pkg/common"
	"github.com/fwhmon/fwhmon/pkg/log"
)

const loginPath = "hes-gateway/terminal/initialize/appUserOrInstallerLogin"

// AccountInfo is the result object of a successful login.
type AccountInfo struct {
	UserID  int    `json:"userId"`
	Token   string `json:"token"`
	Version string `json:"version"`
}

// TokenFetcher logs into the vendor cloud with stored credentials and hands
// out fresh session tokens. The password is MD5-hashed once at construction
// because that is what the login endpoint expects on the wire; the vendor
// chose the scheme, not us.
type TokenFetcher struct {
	client      *http.Client
	baseURL     string
	account     string
	md5Password string

	mu   sync.Mutex
	info *AccountInfo
}

// FetcherOption configures a TokenFetcher.
type FetcherOption func(*TokenFetcher)

// WithFetcherBaseURL points the fetcher at a different API base, mainly for
// tests.
func WithFetcherBaseURL(base string) FetcherOption {
	return func(f *TokenFetcher) {
		f.baseURL = base
	}
}

// WithFetcherHTTPClient replaces the underlying http client.
func WithFetcherHTTPClient(c *http.Client) FetcherOption {
	return func(f *TokenFetcher) {
		f.client = c
	}
}

// NewTokenFetcher builds a fetcher for the given account credentials.
func NewTokenFetcher(username, password string, opts ...FetcherOption) *TokenFetcher {
	hash := md5.Sum([]byte(password))
	f := &TokenFetcher{
		client:      common.HTTPClient(time.Minute),
		baseURL:     DefaultBaseURL,
		account:     username,
		md5Password: hex.EncodeToString(hash[:]),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Token performs a login and returns a fresh session token. The full login
// result is kept so AccountInfo can be read without another round trip.
func (f *TokenFetcher) Token(ctx context.Context) (string, error) {
	if f.account == "" {
		return "", errors.New("missing username")
	}

	data := url.Values{}
	data.Set("account", f.account)
	data.Set("password", f.md5Password)
	data.Set("lang", "en_US")
	data.Set("type", "1")

	u, err := url.JoinPath(f.baseURL, loginPath)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login status %d", resp.StatusCode)
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode login response", slog.Any("error", err), slog.String("body", string(body)))
		return "", fmt.Errorf("malformed login response: %w", err)
	}
	if ar.Code != codeSuccess {
		return "", loginError(ar.Code, ar.Message)
	}

	var info AccountInfo
	if err := json.Unmarshal(ar.Result, &info); err != nil {
		return "", fmt.Errorf("failed to decode login result: %w", err)
	}
	log.Ctx(ctx).DebugContext(ctx, "franklin login success", slog.String("account", f.account), slog.Int("userID", info.UserID))

	f.mu.Lock()
	f.info = &info
	f.mu.Unlock()
	return info.Token, nil
}

// AccountInfo returns the result of the last successful login, or nil if no
// login has happened yet.
func (f *TokenFetcher) AccountInfo() *AccountInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.info == nil {
		return nil
	}
	info := *f.info
	return &info
}
