package cognito

import (
	"errors"
	"net/http"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNotConfirmed  = errors.New("user not confirmed")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrInvalidCode       = errors.New("invalid code")
	ErrCodeExpired       = errors.New("code expired")
	ErrTooManyRequests   = errors.New("too many requests")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidParameter  = errors.New("invalid parameter")
)

// ErrorInfo is the HTTP rendering of a sentinel error.
type ErrorInfo struct {
	Status int
	Code   string
}

// ordered so that lookups are deterministic when an error wraps several sentinels.
var errorTable = []struct {
	err  error
	info ErrorInfo
}{
	{ErrUserAlreadyExists, ErrorInfo{http.StatusConflict, "USER_ALREADY_EXISTS"}},
	{ErrUserNotFound, ErrorInfo{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
	{ErrUserNotConfirmed, ErrorInfo{http.StatusForbidden, "USER_NOT_CONFIRMED"}},
	{ErrInvalidPassword, ErrorInfo{http.StatusBadRequest, "INVALID_PASSWORD"}},
	{ErrInvalidCode, ErrorInfo{http.StatusBadRequest, "INVALID_CODE"}},
	{ErrCodeExpired, ErrorInfo{http.StatusBadRequest, "CODE_EXPIRED"}},
	{ErrTooManyRequests, ErrorInfo{http.StatusTooManyRequests, "TOO_MANY_REQUESTS"}},
	{ErrNotAuthorized, ErrorInfo{http.StatusUnauthorized, "INVALID_CREDENTIALS"}},
	{ErrInvalidParameter, ErrorInfo{http.StatusBadRequest, "INVALID_PARAMETER"}},
}

// LookupError returns the HTTP rendering of a Cognito sentinel in err's chain.
func LookupError(err error) (ErrorInfo, bool) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.info, true
		}
	}
	return ErrorInfo{}, false
}
