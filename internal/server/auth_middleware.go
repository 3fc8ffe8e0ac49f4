package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	internalauth "docattach/internal/auth"
)

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || strings.HasPrefix(r.URL.Path, "/files/") {
			next.ServeHTTP(w, r)
			return
		}

		required, err := s.authService.AuthRequired(r.Context(), s.apiToken != "")
		if err != nil {
			s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
			return
		}
		if !required {
			principal := internalauth.Principal{Anonymous: true}
			next.ServeHTTP(w, r.WithContext(internalauth.WithPrincipal(r.Context(), principal)))
			return
		}

		principal, err := s.authenticate(r)
		if err != nil {
			if httpStatusFromError(err) == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", `Basic realm="docattach"`)
			}
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(internalauth.WithPrincipal(r.Context(), principal)))
	})
}

func (s *Server) authenticate(r *http.Request) (internalauth.Principal, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		if internalauth.TokenMatches(s.apiToken, token) {
			return internalauth.Principal{Token: true}, nil
		}
		return internalauth.Principal{}, unauthorized(fmt.Errorf("invalid api token"))
	}

	username, password, ok := r.BasicAuth()
	if !ok {
		return internalauth.Principal{}, unauthorized(fmt.Errorf("authentication required"))
	}

	now := time.Now().UTC()
	key := authAttemptKey(username, r)
	if !s.authLimiter.Allow(key, now) {
		return internalauth.Principal{}, tooManyRequests(fmt.Errorf("too many failed login attempts; retry later"))
	}

	principal, err := s.authService.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			s.authLimiter.RegisterFailure(key, now)
			return internalauth.Principal{}, unauthorized(errInvalidCredentials)
		}
		return internalauth.Principal{}, storeFailure(err)
	}
	s.authLimiter.Reset(key)
	return principal, nil
}

// principalFor returns the caller of r. Requests that reached a handler always carry one.
func principalFor(r *http.Request) internalauth.Principal {
	principal, _ := internalauth.PrincipalFromContext(r.Context())
	return principal
}

func authAttemptKey(username string, r *http.Request) string {
	user := strings.ToLower(strings.TrimSpace(username))
	if user == "" {
		user = "<empty>"
	}
	ip := requestClientIP(r)
	if ip == "" {
		ip = "<unknown>"
	}
	return ip + "|" + user
}

func requestClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
