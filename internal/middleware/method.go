package middleware

import (
	"errors"
	"mime"
	"net/http"
	"strings"
)

var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// LimitBody caps request bodies at n bytes. Reads past the cap fail with
// *http.MaxBytesError.
func LimitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MethodOverride lets HTML forms, which can only POST, reach PUT, PATCH and
// DELETE routes through a _method field or X-HTTP-Method-Override header.
// It parses urlencoded bodies, so it belongs after LimitBody and Auth.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := r.Header.Get("X-HTTP-Method-Override")
			if method == "" && isURLEncodedForm(r) {
				if err := r.ParseForm(); err != nil {
					writeBodyError(w, err)
					return
				}
				method = r.PostForm.Get("_method")
			}
			method = strings.ToUpper(method)
			if overridableMethods[method] {
				r.Method = method
				noteMethod(r.Context(), method)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isURLEncodedForm(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/x-www-form-urlencoded"
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSONError(w, http.StatusBadRequest, "BODY_TOO_LARGE", "request body too large")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "INVALID_FORM", "invalid request body")
}
