// Package auth resolves who is using the ledger. Sign-in yields an opaque
// user id; sessions map a cookie to that id for subsequent requests.
package auth

import (
	"context"
	"errors"
)

var ErrSignInFailed = errors.New("sign-in failed")

// User is the signed-in identity. ID is the only field the ledger relies on.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Provider reports the current user for a request.
type Provider interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// SignIn is an identity backend driving the login redirect flow.
type SignIn interface {
	AuthCodeURL(state string) string
	SignIn(ctx context.Context, code string) (User, error)
}

type contextKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok && u.ID != ""
}

// SessionProvider reads the user placed in the context by Middleware.
type SessionProvider struct{}

func (SessionProvider) CurrentUserID(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	return u.ID, ok
}
