package form

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/recordkit/pkg/schema"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

var contactForm = MustDefine("Contact",
	schema.MustNew(
		schema.Attribute{Name: "email", Type: schema.TypeString, Default: ""},
		schema.Attribute{Name: "message", Type: schema.TypeString, Default: ""},
		schema.Attribute{Name: "copies", Type: schema.TypeInteger, Default: 1},
	),
	validation.Presence("email"),
	validation.Format("email", regexp.MustCompile(`^[^@\s]+@[^@\s]+$`), ""),
	validation.Presence("message"),
	validation.Range("copies", 1, 5),
)

func TestNewAppliesDefaults(t *testing.T) {
	f, err := contactForm.New(map[string]any{"email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, Unvalidated, f.Validity())
	assert.Equal(t, "a@example.com", f.Text("email"))
	assert.Equal(t, "", f.Get("message"))
	assert.Equal(t, int64(1), f.Get("copies"))

	_, err = contactForm.New(map[string]any{"subject": "hi"})
	assert.ErrorIs(t, err, types.ErrUnknownAttribute)

	_, err = contactForm.New(map[string]any{"copies": "many"})
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
}

func TestValidateComputesValidity(t *testing.T) {
	ctx := context.Background()
	f, err := contactForm.New(map[string]any{"email": "nope", "copies": 9})
	require.NoError(t, err)

	errs, err := f.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, Invalid, f.Validity())
	assert.Equal(t, validation.Errors{
		"email":   {validation.MsgInvalid},
		"message": {validation.MsgBlank},
		"copies":  {"must be less than or equal to 5"},
	}, errs)
	assert.Equal(t, errs, f.Errors())

	require.NoError(t, f.Set("email", "a@example.com"))
	assert.Equal(t, Unvalidated, f.Validity(), "assignment invalidates the previous outcome")
	assert.True(t, f.Errors().Empty())

	require.NoError(t, f.Set("message", "hello"))
	require.NoError(t, f.Set("copies", "2"))
	errs, err = f.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, errs.Empty())
	assert.Equal(t, Valid, f.Validity())
}

func TestPerformSkipsActionWhenInvalid(t *testing.T) {
	f, err := contactForm.New(nil)
	require.NoError(t, err)

	ran := false
	_, err = Perform(context.Background(), f, func(context.Context, *Instance) (string, error) {
		ran = true
		return "sent", nil
	})
	var failed *validation.FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "Contact", failed.Subject)
	assert.False(t, ran)
	assert.Equal(t, Invalid, f.Validity())
}

func TestPerformRunsAction(t *testing.T) {
	f, err := contactForm.New(map[string]any{"email": "a@example.com", "message": "hi"})
	require.NoError(t, err)

	got, err := Perform(context.Background(), f, func(_ context.Context, f *Instance) (string, error) {
		return "sent to " + f.Text("email"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "sent to a@example.com", got)
	assert.Equal(t, Valid, f.Validity())
}

func TestRejectMarksInvalid(t *testing.T) {
	f, err := contactForm.New(map[string]any{"email": "a@example.com", "message": "hi"})
	require.NoError(t, err)
	errRefused := errors.New("refused")

	_, err = Perform(context.Background(), f, func(_ context.Context, f *Instance) (int, error) {
		f.Reject(validation.Base, "Message could not be delivered")
		return 0, errRefused
	})
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, Invalid, f.Validity())
	assert.Equal(t, []string{"Message could not be delivered"}, f.Errors().FullMessages())
}

func TestDefineRejectsRulesOnUnknownAttributes(t *testing.T) {
	s := schema.MustNew(schema.Attribute{Name: "email", Type: schema.TypeString})

	_, err := Define("Broken", s, validation.Presence("password"))
	assert.ErrorIs(t, err, types.ErrUnknownAttribute)

	_, err = Define("Broken", nil)
	assert.ErrorIs(t, err, types.ErrInvalidSchema)

	_, err = Define("Ok", s, validation.Custom(validation.Base, func(validation.Subject) bool { return true }, "never"))
	assert.NoError(t, err)
}
