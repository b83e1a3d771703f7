package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/recordkit/pkg/record"
	"github.com/mesh-intelligence/recordkit/pkg/schema"
	"github.com/mesh-intelligence/recordkit/pkg/sqlstore"
)

func newUser(t *testing.T) *record.Record {
	t.Helper()
	b := sqlstore.NewBackend()
	users := record.MustDefine(b, "users", schema.MustNew(
		schema.Attribute{Name: "email", Type: schema.TypeString},
	))
	u, err := users.New(map[string]any{"email": "ada@example.com"})
	require.NoError(t, err)
	return u
}

func TestUserRoundTrip(t *testing.T) {
	_, ok := User(context.Background())
	assert.False(t, ok)

	u := newUser(t)
	got, ok := User(WithUser(context.Background(), u))
	require.True(t, ok)
	assert.Same(t, u, got)

	_, ok = User(WithUser(context.Background(), nil))
	assert.False(t, ok, "a nil record is not a signed-in user")
}

func TestRequiresSignIn(t *testing.T) {
	anonymous := context.Background()
	signedIn := WithUser(context.Background(), newUser(t))

	tests := []struct {
		name string
		ctx  context.Context
		path string
		want bool
	}{
		{"anonymous on a page", anonymous, "/dashboard", true},
		{"anonymous on root", anonymous, "/", true},
		{"anonymous on sign in", anonymous, SignInPath, false},
		{"anonymous on sign up", anonymous, "/signup", false},
		{"anonymous on sign out", anonymous, "/signout", false},
		{"signed in on a page", signedIn, "/dashboard", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresSignIn(tt.ctx, tt.path))
		})
	}
}
