// Package middleware provides HTTP middleware components for the Ariadne API.
package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration for the single-origin viewer setup.
type CORSConfig struct {
	// AllowedOrigin is the configured viewer origin. Its localhost and
	// 127.0.0.1 spellings are both accepted so the viewer works with
	// either address without configuration churn.
	AllowedOrigin  string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS creates a middleware that handles Cross-Origin Resource Sharing
// (CORS). Credentials are never allowed.
func CORS(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setCORSOriginHeader(w, r, config.AllowedOrigin)
			setCORSMethodsHeader(w, config.AllowedMethods)
			setCORSHeadersHeader(w, config.AllowedHeaders)
			setCORSMaxAgeHeader(w, config.MaxAge)

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setCORSOriginHeader sets the Access-Control-Allow-Origin header when the
// request origin is the allowed origin or its loopback alias.
func setCORSOriginHeader(w http.ResponseWriter, r *http.Request, allowedOrigin string) {
	if allowedOrigin == "" {
		return
	}

	if allowedOrigin == "*" {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && originAllowed(origin, allowedOrigin) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
}

// originAllowed reports whether origin matches the configured origin
// exactly or modulo the localhost/127.0.0.1 loopback spelling.
func originAllowed(origin, allowed string) bool {
	if origin == allowed {
		return true
	}

	return loopbackAlias(origin) == allowed || origin == loopbackAlias(allowed)
}

// loopbackAlias swaps localhost and 127.0.0.1 in an origin's host, leaving
// any other origin untouched.
func loopbackAlias(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return origin
	}

	switch u.Hostname() {
	case "localhost":
		return swapHost(u, "127.0.0.1")
	case "127.0.0.1":
		return swapHost(u, "localhost")
	default:
		return origin
	}
}

func swapHost(u *url.URL, host string) string {
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	return u.String()
}

// setCORSMethodsHeader sets the Access-Control-Allow-Methods header.
func setCORSMethodsHeader(w http.ResponseWriter, allowedMethods []string) {
	if len(allowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
	}
}

// setCORSHeadersHeader sets the Access-Control-Allow-Headers header.
func setCORSHeadersHeader(w http.ResponseWriter, allowedHeaders []string) {
	if len(allowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(allowedHeaders, ", "))
	}
}

// setCORSMaxAgeHeader sets the Access-Control-Max-Age header.
func setCORSMaxAgeHeader(w http.ResponseWriter, maxAge int) {
	if maxAge > 0 {
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
	}
}
