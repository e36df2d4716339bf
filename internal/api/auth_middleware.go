package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/battala/voicemesh/internal/core"
)

type ctxKey string

// UserIDContextKey is used for extract uid from request context
const UserIDContextKey ctxKey = "current_user_id"

// AuthFailFunc is function that is called when authentication failed
type AuthFailFunc func(w http.ResponseWriter, r *http.Request, err error)

// AuthHandler is optional handler for mocking in tests
type AuthHandler func(next http.Handler) http.Handler

var (
	xUserID            = http.CanonicalHeaderKey("X-User-Id")
	ErrEmptyIdentity   = errors.New("empty identity header")
	errNoUserInContext = errors.New("can't get user ID from request context")
)

// EdgeAuth trusts the identity installed by the upstream auth layer. Token
// validation and permission verdicts happen there; this core only needs the
// resolved user id.
type EdgeAuth struct {
	AuthFailFunc AuthFailFunc
	StubHandler  AuthHandler
}

func NewEdgeAuth() *EdgeAuth {
	return &EdgeAuth{}
}

func (m *EdgeAuth) Middleware() AuthHandler {
	if m.StubHandler != nil {
		return m.StubHandler
	}

	return m.defaultMiddleware()
}

func (m *EdgeAuth) defaultMiddleware() AuthHandler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(xUserID)
			if userID == "" {
				m.authFailed(w, r, ErrEmptyIdentity)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDContextKey, core.UserID(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (m *EdgeAuth) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	if m.AuthFailFunc != nil {
		m.AuthFailFunc(w, r, err)
	} else {
		w.WriteHeader(http.StatusUnauthorized)
	}
}

// extractUserID pulls the authenticated user out of the request context.
func extractUserID(r *http.Request) (core.UserID, error) {
	userID, ok := r.Context().Value(UserIDContextKey).(core.UserID)
	if !ok {
		return "", errNoUserInContext
	}

	return userID, nil
}
