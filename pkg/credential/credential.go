// Package credential hashes and verifies passwords with bcrypt. Plaintext
// is accepted through a virtual record attribute, hashed before the record
// is written and never stored or logged.
package credential

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/recordkit/pkg/record"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

// MaxLength is the longest plaintext bcrypt accepts, in bytes.
const MaxLength = 72

// Messages reported by SecurePassword validation.
const (
	MsgTooLong = "is too long (maximum is 72 bytes)"
	MsgMissing = "can't be blank"
)

// dummyDigests holds one digest per cost, compared against when no stored
// digest exists so an unknown account costs the same as a wrong password.
var (
	dummyMu      sync.Mutex
	dummyDigests = map[int][]byte{}
)

func dummyDigest(cost int) []byte {
	dummyMu.Lock()
	defer dummyMu.Unlock()
	if d, ok := dummyDigests[cost]; ok {
		return d
	}
	d, err := bcrypt.GenerateFromPassword([]byte("recordkit-absent-account"), cost)
	if err != nil {
		d, _ = bcrypt.GenerateFromPassword([]byte("recordkit-absent-account"), bcrypt.DefaultCost)
	}
	dummyDigests[cost] = d
	return d
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// Hash returns the bcrypt digest of plaintext at cost. A cost outside
// bcrypt's range uses bcrypt.DefaultCost.
func Hash(plaintext string, cost int) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), normalizeCost(cost))
	if err != nil {
		return "", fmt.Errorf("hashing credential: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether plaintext matches digest. bcrypt compares the
// derived hashes in constant time.
func Compare(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Verify reports whether plaintext matches the digest stored in attribute
// digestAttr of r. A record without a digest burns a comparison against the
// dummy digest of cost, the cost used for stored digests, and returns false,
// so it takes as long as a missing account or a wrong password.
func Verify(r validation.Subject, digestAttr, plaintext string, cost int) bool {
	digest, _ := r.Get(digestAttr).(string)
	if digest == "" {
		return VerifyAbsent(plaintext, cost)
	}
	return Compare(digest, plaintext)
}

// VerifyAbsent spends the cost of one verification at cost and returns
// false. Call it when the account lookup found nothing, with the cost used
// for stored digests, so that the missing account and the wrong password
// cases take the same time.
func VerifyAbsent(plaintext string, cost int) bool {
	_ = bcrypt.CompareHashAndPassword(dummyDigest(normalizeCost(cost)), []byte(plaintext))
	return false
}

type passwordConfig struct {
	cost     int
	optional bool
}

// PasswordOption configures SecurePassword.
type PasswordOption func(*passwordConfig)

// Cost sets the bcrypt cost used for new digests.
func Cost(n int) PasswordOption {
	return func(c *passwordConfig) { c.cost = n }
}

// Optional lets records be saved without any password.
func Optional() PasswordOption {
	return func(c *passwordConfig) { c.optional = true }
}

// SecurePassword equips a model with password handling. virtual names the
// write-only plaintext attribute and digest the stored string attribute that
// holds the bcrypt hash. Before every save a non-empty plaintext is hashed
// into digest. Validation caps the plaintext at MaxLength bytes and, unless
// Optional is given, requires a digest or plaintext to exist.
func SecurePassword(virtual, digest string, opts ...PasswordOption) record.Option {
	cfg := passwordConfig{cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&cfg)
	}

	present := func(s validation.Subject) bool {
		pw, _ := s.Get(virtual).(string)
		d, _ := s.Get(digest).(string)
		return pw != "" || d != ""
	}
	short := func(s validation.Subject) bool {
		pw, _ := s.Get(virtual).(string)
		return len(pw) <= MaxLength
	}
	hash := func(_ context.Context, r *record.Record) error {
		pw, _ := r.Get(virtual).(string)
		if pw == "" {
			return nil
		}
		d, err := Hash(pw, cfg.cost)
		if err != nil {
			return err
		}
		return r.Set(digest, d)
	}

	rules := []validation.Rule{validation.Custom(virtual, short, MsgTooLong)}
	if !cfg.optional {
		rules = append([]validation.Rule{validation.Custom(virtual, present, MsgMissing)}, rules...)
	}
	return func(m *record.Model) {
		record.Virtual(virtual)(m)
		record.Validates(rules...)(m)
		record.On(record.BeforeSave, hash)(m)
	}
}
