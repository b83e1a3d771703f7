// Package session carries the signed-in user through a request context.
// There is no process-wide current user: the HTTP layer authenticates,
// stores the record with WithUser and passes the context down.
package session

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/recordkit/pkg/record"
)

// Sign-in routes. Paths under SignInPrefix stay reachable without a user.
const (
	SignInPrefix = "/sign"
	SignInPath   = "/signin"
)

type userKey struct{}

// WithUser returns a context carrying u as the signed-in user.
func WithUser(ctx context.Context, u *record.Record) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// User returns the signed-in user carried by ctx.
func User(ctx context.Context) (*record.Record, bool) {
	u, ok := ctx.Value(userKey{}).(*record.Record)
	return u, ok && u != nil
}

// RequiresSignIn reports whether a request for path must be redirected to
// SignInPath: no user is signed in and path is not a sign-in route.
func RequiresSignIn(ctx context.Context, path string) bool {
	if _, ok := User(ctx); ok {
		return false
	}
	return !strings.HasPrefix(path, SignInPrefix)
}
