// Package models defines the application's model classes: the persisted
// User and the SignIn form that authenticates against it.
package models

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/recordkit/internal/ctxlog"
	"github.com/mesh-intelligence/recordkit/pkg/credential"
	"github.com/mesh-intelligence/recordkit/pkg/form"
	"github.com/mesh-intelligence/recordkit/pkg/record"
	"github.com/mesh-intelligence/recordkit/pkg/schema"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

// UsersTable is the table backing the User model.
const UsersTable = "users"

// User attribute names.
const (
	FirstName      = "first_name"
	LastName       = "last_name"
	Age            = "age"
	Email          = "email"
	Password       = "password"
	PasswordDigest = "password_digest"
)

// MsgBadCredentials is reported on a SignIn form whose credentials were
// rejected. It does not say which part was wrong.
const MsgBadCredentials = "Invalid email or password"

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var userSchema = schema.MustNew(
	schema.Attribute{Name: FirstName, Type: schema.TypeString},
	schema.Attribute{Name: LastName, Type: schema.TypeString},
	schema.Attribute{Name: Age, Type: schema.TypeInteger, Nullable: true},
	schema.Attribute{Name: Email, Type: schema.TypeString, Nullable: true},
	schema.Attribute{Name: PasswordDigest, Type: schema.TypeString, Nullable: true},
)

var signInSchema = schema.MustNew(
	schema.Attribute{Name: Email, Type: schema.TypeString, Default: ""},
	schema.Attribute{Name: Password, Type: schema.TypeString, Default: ""},
)

var fold = cases.Fold()

// NormalizeEmail trims and case-folds an address so lookups and uniqueness
// checks ignore case.
func NormalizeEmail(email string) string {
	return fold.String(strings.TrimSpace(email))
}

// Registry holds the model classes bound to one store.
type Registry struct {
	Users  *record.Model
	SignIn *form.Class
	cost   int
}

// New defines the models over store. bcryptCost is used for new password
// digests; a value outside bcrypt's range uses bcrypt.DefaultCost.
func New(store types.Store, bcryptCost int) (*Registry, error) {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	users, err := record.Define(store, UsersTable, userSchema,
		record.Named("User"),
		record.On(record.BeforeValidation, normalizeUserEmail),
		record.Validates(
			validation.Presence(FirstName),
			validation.Presence(LastName),
			validation.Range(Age, 0, 150),
			validation.Format(Email, emailRe, ""),
		),
		record.ValidatesUniqueness(Email),
		credential.SecurePassword(Password, PasswordDigest, credential.Cost(bcryptCost), credential.Optional()),
	)
	if err != nil {
		return nil, err
	}
	signIn, err := form.Define("SignIn", signInSchema,
		validation.Presence(Email),
		validation.Presence(Password),
	)
	if err != nil {
		return nil, err
	}
	return &Registry{Users: users, SignIn: signIn, cost: bcryptCost}, nil
}

// EnsureTables creates the tables of the persisted models.
func (r *Registry) EnsureTables(ctx context.Context) error {
	return r.Users.EnsureTable(ctx)
}

func normalizeUserEmail(_ context.Context, u *record.Record) error {
	email, ok := u.Get(Email).(string)
	if !ok {
		return nil
	}
	if normalized := NormalizeEmail(email); normalized != "" {
		return u.Set(Email, normalized)
	}
	return u.Set(Email, nil)
}

// CheckPassword reports whether plaintext is the password of u. A nil u, a
// user without a password and a wrong password all cost one comparison at
// the registry's bcrypt cost.
func (r *Registry) CheckPassword(u *record.Record, plaintext string) bool {
	if u == nil {
		return credential.VerifyAbsent(plaintext, r.cost)
	}
	return credential.Verify(u, PasswordDigest, plaintext, r.cost)
}

// NewSignIn returns a SignIn form for one submission.
func (r *Registry) NewSignIn(email, password string) (*form.Instance, error) {
	return r.SignIn.New(map[string]any{Email: email, Password: password})
}

// Authenticate validates the SignIn form and returns the matching user.
// An invalid form yields a *validation.FailedError. An unknown email and a
// wrong password both yield types.ErrAuthenticationFailed at the same cost,
// with MsgBadCredentials recorded on the form.
func (r *Registry) Authenticate(ctx context.Context, f *form.Instance) (*record.Record, error) {
	return form.Perform(ctx, f, r.authenticate)
}

func (r *Registry) authenticate(ctx context.Context, f *form.Instance) (*record.Record, error) {
	logger := ctxlog.FromContext(ctx)
	password := f.Text(Password)

	u, err := r.Users.FindBy(ctx, types.Filter{Email: NormalizeEmail(f.Text(Email))})
	switch {
	case errors.Is(err, types.ErrNotFound):
		r.CheckPassword(nil, password)
	case err != nil:
		return nil, fmt.Errorf("sign in: %w", err)
	case r.CheckPassword(u, password):
		logger.Debug("sign in succeeded", "model", r.Users.Name(), "id", u.ID())
		return u, nil
	}

	logger.Debug("sign in rejected", "model", r.Users.Name())
	f.Reject(validation.Base, MsgBadCredentials)
	return nil, types.ErrAuthenticationFailed
}
