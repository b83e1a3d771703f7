package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/recordkit/pkg/form"
	"github.com/mesh-intelligence/recordkit/pkg/record"
	"github.com/mesh-intelligence/recordkit/pkg/sqlstore"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	b, err := sqlstore.Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { b.Detach() })

	reg, err := New(b, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, reg.EnsureTables(context.Background()))
	return reg
}

func TestUserCRUD(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	user, err := reg.Users.Create(ctx, map[string]any{FirstName: "John", LastName: "Doe"})
	require.NoError(t, err)
	assert.Equal(t, record.Persisted, user.State())
	assert.Nil(t, user.Get(Age))

	require.NoError(t, user.Update(ctx, map[string]any{Age: 26}))

	names := []string{}
	for u, err := range reg.Users.All(ctx) {
		require.NoError(t, err)
		names = append(names, u.Get(FirstName).(string))
	}
	assert.Equal(t, []string{"John"}, names)

	john, err := reg.Users.FindBy(ctx, types.Filter{FirstName: "John", LastName: "Doe"})
	require.NoError(t, err)
	assert.Equal(t, int64(26), john.Get(Age))

	require.NoError(t, john.Delete(ctx))
	_, err = reg.Users.FindBy(ctx, types.Filter{FirstName: "John", LastName: "Doe"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUserEmailIsNormalizedAndUnique(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	ada, err := reg.Users.Create(ctx, map[string]any{FirstName: "Ada", LastName: "Lovelace", Email: "  Ada@Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", ada.Get(Email))

	dup, err := reg.Users.Create(ctx, map[string]any{FirstName: "A", LastName: "L", Email: "ADA@example.com"})
	assert.ErrorIs(t, err, types.ErrValidationFailed)
	assert.Equal(t, []string{validation.MsgTaken}, dup.Errors().On(Email))

	blank, err := reg.Users.Create(ctx, map[string]any{FirstName: "B", LastName: "L", Email: "   "})
	require.NoError(t, err)
	assert.Nil(t, blank.Get(Email), "blank email is stored as NULL")

	bad, err := reg.Users.Create(ctx, map[string]any{FirstName: "C", LastName: "L", Email: "not-an-email"})
	assert.ErrorIs(t, err, types.ErrValidationFailed)
	assert.Equal(t, []string{validation.MsgInvalid}, bad.Errors().On(Email))
}

func TestUserValidationMessages(t *testing.T) {
	reg := setupRegistry(t)

	rec, err := reg.Users.Create(context.Background(), map[string]any{Age: 151})
	assert.ErrorIs(t, err, types.ErrValidationFailed)
	assert.Equal(t, []string{
		"Age must be less than or equal to 150",
		"First name can't be blank",
		"Last name can't be blank",
	}, rec.Errors().FullMessages())
}

func createAda(t *testing.T, reg *Registry) *record.Record {
	t.Helper()
	u, err := reg.Users.Create(context.Background(), map[string]any{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "analytical",
	})
	require.NoError(t, err)
	return u
}

func TestSignInAuthenticate(t *testing.T) {
	reg := setupRegistry(t)
	ada := createAda(t, reg)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantUser bool
	}{
		{"unknown email", "grace@example.com", "analytical", false},
		{"wrong password", "ada@example.com", "engine", false},
		{"correct credentials", "ada@example.com", "analytical", true},
		{"email case ignored", "ADA@example.com", "analytical", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := reg.NewSignIn(tt.email, tt.password)
			require.NoError(t, err)

			u, err := reg.Authenticate(ctx, f)
			if !tt.wantUser {
				assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
				assert.Nil(t, u)
				assert.Equal(t, form.Invalid, f.Validity())
				assert.Equal(t, []string{MsgBadCredentials}, f.Errors().On(validation.Base))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ada.ID(), u.ID())
			assert.Equal(t, form.Valid, f.Validity())
		})
	}
}

func TestSignInRequiresFields(t *testing.T) {
	reg := setupRegistry(t)

	f, err := reg.SignIn.New(nil)
	require.NoError(t, err)
	assert.Equal(t, "", f.Get(Email))

	u, err := reg.Authenticate(context.Background(), f)
	assert.Nil(t, u)
	assert.ErrorIs(t, err, types.ErrValidationFailed)
	assert.Equal(t, validation.Errors{
		Email:    {validation.MsgBlank},
		Password: {validation.MsgBlank},
	}, f.Errors())
}

func TestSignInUserWithoutPassword(t *testing.T) {
	reg := setupRegistry(t)
	_, err := reg.Users.Create(context.Background(), map[string]any{
		FirstName: "Guest", LastName: "User", Email: "guest@example.com",
	})
	require.NoError(t, err)

	f, err := reg.NewSignIn("guest@example.com", "anything")
	require.NoError(t, err)
	_, err = reg.Authenticate(context.Background(), f)
	assert.ErrorIs(t, err, types.ErrAuthenticationFailed)
}

func TestCheckPassword(t *testing.T) {
	reg := setupRegistry(t)
	ada := createAda(t, reg)

	assert.True(t, reg.CheckPassword(ada, "analytical"))
	assert.False(t, reg.CheckPassword(ada, "Analytical"))
	assert.False(t, reg.CheckPassword(nil, "analytical"))

	guest, err := reg.Users.Create(context.Background(), map[string]any{
		FirstName: "Guest", LastName: "User", Email: "guest@example.com",
	})
	require.NoError(t, err)
	assert.False(t, reg.CheckPassword(guest, ""))
	assert.False(t, reg.CheckPassword(guest, "analytical"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", NormalizeEmail(" Ada@EXAMPLE.com\n"))
	assert.Equal(t, "strasse@example.com", NormalizeEmail("STRASSE@example.com"))
}

func TestUsersTableEnforcesUniqueEmail(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()
	store := reg.Users.Store()

	row := types.Row{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	_, err := store.Insert(ctx, UsersTable, row)
	require.NoError(t, err)
	_, err = store.Insert(ctx, UsersTable, row)
	assert.Error(t, err)
}
