package franklin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fwhmon/fwhmon/pkg/log"
)

// apiResponse is the envelope every endpoint answers with. The code inside is
// application-level and independent of the transport HTTP status.
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Success bool            `json:"success"`
}

// query returns the common query params plus any extras. The gatewayId param
// is omitted while still unresolved (only the gateway-list call runs in that
// state).
func (c *Client) query(extra url.Values) url.Values {
	params := url.Values{}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	if id := c.GatewayID(); id != "" {
		params.Set("gatewayId", id)
	}
	params.Set("lang", "en_US")
	return params
}

func (c *Client) endpoint(path string, params url.Values) (string, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return "", err
	}
	if q := c.query(params).Encode(); q != "" {
		u += "?" + q
	}
	return u, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	u, err := c.endpoint(path, params)
	if err != nil {
		return err
	}
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}, dest)
}

// postJSON sends body as a JSON document, or an empty body when body is nil.
// Some endpoints take their arguments in the query string of a POST.
func (c *Client) postJSON(ctx context.Context, path string, params url.Values, body any, dest any) error {
	u, err := c.endpoint(path, params)
	if err != nil {
		return err
	}
	var encoded []byte
	if body != nil {
		if encoded, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, dest)
}

// postRaw sends an already-serialized JSON payload verbatim. Used for framed
// command envelopes, whose bytes must not be re-encoded.
func (c *Client) postRaw(ctx context.Context, path string, payload string, dest any) error {
	u, err := c.endpoint(path, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, dest)
}

func (c *Client) postForm(ctx context.Context, path string, data url.Values, dest any) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return err
	}
	encoded := data.Encode()
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("optsource", "3")
		return req, nil
	}, dest)
}

// do sends a request with the current token attached. On an authentication
// failure (application code 401, or a transport 401) it refreshes the token
// through the fetcher exactly once and retries exactly once; a second failure
// is surfaced. Every other non-success code is returned to the caller as a
// classified APIError. Nothing is swallowed here.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error), dest any) error {
	var refreshed bool
	for {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}
		req, err := build()
		if err != nil {
			return err
		}
		req.Header.Set("loginToken", token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("franklin request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		expired := resp.StatusCode == http.StatusUnauthorized
		if !expired && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		var ar apiResponse
		if !expired {
			if err := json.Unmarshal(body, &ar); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to decode franklin response", slog.Any("error", err), slog.String("body", string(body)))
				return fmt.Errorf("malformed response: %w", err)
			}
			expired = ar.Code == codeTokenExpired
		}

		if expired {
			if refreshed {
				return apiError(codeTokenExpired, ar.Message)
			}
			log.Ctx(ctx).DebugContext(ctx, "franklin token expired, refreshing", slog.String("url", req.URL.Path))
			refreshed = true
			c.invalidateToken()
			continue
		}

		if ar.Code != codeSuccess {
			return apiError(ar.Code, ar.Message)
		}

		if dest != nil && len(ar.Result) > 0 && string(ar.Result) != "null" {
			if err := json.Unmarshal(ar.Result, dest); err != nil {
				return fmt.Errorf("failed to decode franklin result: %w", err)
			}
		}
		return nil
	}
}
