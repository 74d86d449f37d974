package franklin

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the vendor API's application-level failures. Match with
// errors.Is; the wrapping *APIError carries the raw code and message.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrTokenExpired       = errors.New("token expired")
	ErrDeviceTimeout      = errors.New("device timed out")
	ErrGatewayOffline     = errors.New("gateway offline")
	ErrUnexpectedCode     = errors.New("unexpected api code")

	// ErrMergedSwitchConflict is returned before anything is transmitted when
	// hardware-merged smart switches 1 and 2 would be set to different values.
	ErrMergedSwitchConflict = errors.New("smart switches 1 and 2 are merged and must be set to the same value")

	// ErrProviderControlled is returned when trying to change a setting the
	// electricity provider owns (VPP mode).
	ErrProviderControlled = errors.New("controlled by the provider")
)

// Application-level codes embedded in the response JSON, independent of the
// transport HTTP status.
const (
	codeSuccess        = 200
	codeDeviceTimeout  = 102
	codeGatewayOffline = 136
	codeAccountLocked  = 400
	codeTokenExpired   = 401
)

// APIError is a non-success application code from the vendor API. It unwraps
// to one of the sentinel kinds above so callers can branch with errors.Is
// without losing the original code and message.
type APIError struct {
	Code    int
	Message string

	kind error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("franklin api code %d: %v", e.Code, e.kind)
	}
	return fmt.Sprintf("franklin api code %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// apiError classifies a code seen on the authenticated request path.
func apiError(code int, message string) *APIError {
	kind := ErrUnexpectedCode
	switch code {
	case codeTokenExpired:
		kind = ErrTokenExpired
	case codeDeviceTimeout:
		kind = ErrDeviceTimeout
	case codeGatewayOffline:
		kind = ErrGatewayOffline
	}
	return &APIError{Code: code, Message: message, kind: kind}
}

// loginError classifies a code seen on the login endpoint, where 401 means
// bad credentials rather than an expired token.
func loginError(code int, message string) *APIError {
	kind := ErrUnexpectedCode
	switch code {
	case codeTokenExpired:
		kind = ErrInvalidCredentials
	case codeAccountLocked:
		kind = ErrAccountLocked
	}
	return &APIError{Code: code, Message: message, kind: kind}
}
