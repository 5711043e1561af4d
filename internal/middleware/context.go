package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey      contextKey = "user_id"
	requestInfoKey contextKey = "request_info"
)

// requestInfo carries what inner middleware learn about a request back to
// the outer logging and metrics middleware, which hold an older copy of it.
type requestInfo struct {
	userID string
	method string
}

// trackRequest returns ctx with a requestInfo, reusing one set further out.
func trackRequest(ctx context.Context) (context.Context, *requestInfo) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		return ctx, info
	}
	info := &requestInfo{}
	return context.WithValue(ctx, requestInfoKey, info), info
}

// effectiveMethod is the method after any override.
func (i *requestInfo) effectiveMethod(r *http.Request) string {
	if i.method != "" {
		return i.method
	}
	return r.Method
}

func noteMethod(ctx context.Context, method string) {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.method = method
	}
}

// SetUserID stores the authenticated user id. It also reports the id to an
// enclosing Logging middleware, if any.
func SetUserID(ctx context.Context, userID string) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = userID
	}
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(r *http.Request) string {
	return UserIDFrom(r.Context())
}

// UserIDFrom is GetUserID for code that only holds a context.
func UserIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}
