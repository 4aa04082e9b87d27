// Copyright 2025 The NutriServe Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Middleware creates an HTTP middleware that requires a valid bearer token
// on every request. Requests without valid tokens receive 401 Unauthorized.
//
// The token is taken from the Authorization header, either as
// "Bearer <token>" or as a raw token. Validated claims are stored in the
// request context and can be retrieved with ClaimsFromContext.
func Middleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			tokenString := extractToken(authHeader)
			if tokenString == "" {
				writeAuthError(w, "Invalid Authorization format, expected: Bearer <token>", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(r.Context(), tokenString)
			if err != nil {
				writeAuthError(w, fmt.Sprintf("Invalid token: %s", err.Error()), http.StatusUnauthorized)
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MiddlewareWithExclusions creates a middleware that skips authentication
// for the given paths. Paths match exactly, with trailing-slash variants
// accepted. Useful for health checks and card discovery endpoints.
func MiddlewareWithExclusions(validator TokenValidator, excludedPaths []string) func(http.Handler) http.Handler {
	excludeSet := make(map[string]bool, len(excludedPaths))
	for _, path := range excludedPaths {
		excludeSet[path] = true
	}

	authenticate := Middleware(validator)

	return func(next http.Handler) http.Handler {
		authed := authenticate(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if excludeSet[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			pathWithSlash := r.URL.Path
			if !strings.HasSuffix(pathWithSlash, "/") {
				pathWithSlash += "/"
			}
			pathWithoutSlash := strings.TrimSuffix(r.URL.Path, "/")
			if excludeSet[pathWithSlash] || excludeSet[pathWithoutSlash] {
				next.ServeHTTP(w, r)
				return
			}

			authed.ServeHTTP(w, r)
		})
	}
}

// RequireRole creates a middleware that requires one of the given roles.
// Must run after Middleware in the chain.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeAuthError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !claims.HasAnyRole(roles...) {
				writeAuthError(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the token from an Authorization header. Supports
// "Bearer <token>" and raw token formats.
func extractToken(authHeader string) string {
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return authHeader
}

// writeAuthError writes a JSON error response.
func writeAuthError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
