package validation

import "context"

// Validator holds the ordered rules of one model or form class. Rules are
// registered while the class is defined; Validate is safe for concurrent use
// once registration is done.
type Validator struct {
	rules []Rule
}

// New returns a Validator with the given rules in registration order.
func New(rules ...Rule) *Validator {
	return &Validator{rules: append([]Rule(nil), rules...)}
}

// Add registers more rules after the existing ones.
func (v *Validator) Add(rules ...Rule) {
	v.rules = append(v.rules, rules...)
}

// Rules returns a copy of the registered rules.
func (v *Validator) Rules() []Rule {
	if v == nil {
		return nil
	}
	return append([]Rule(nil), v.rules...)
}

// Validate runs every rule against s and collects the failures. It never
// mutates s. The error is non-nil only when a rule could not run, for
// example when a uniqueness lookup fails against the store.
func (v *Validator) Validate(ctx context.Context, s Subject) (Errors, error) {
	errs := Errors{}
	if v == nil {
		return errs, nil
	}
	for _, r := range v.rules {
		msg, err := r.Check(ctx, s)
		if err != nil {
			return nil, err
		}
		if msg != "" {
			errs.Add(r.Attribute(), msg)
		}
	}
	return errs, nil
}
