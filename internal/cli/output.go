package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/recordkit/internal/models"
	"github.com/mesh-intelligence/recordkit/pkg/record"
	"github.com/mesh-intelligence/recordkit/pkg/types"
	"github.com/mesh-intelligence/recordkit/pkg/validation"
)

// parseAssignments turns key=value arguments into an attribute map. Values
// stay strings for the schema to coerce; the literal null clears a value.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected key=value)", arg)
		}
		if value == "null" {
			out[key] = nil
			continue
		}
		out[key] = value
	}
	return out, nil
}

// view returns the attributes shown for a user. The credential digest is
// never printed.
func view(r *record.Record) map[string]any {
	out := r.Attributes()
	delete(out, models.PasswordDigest)
	out[types.IDColumn] = r.ID()
	return out
}

// printRecords writes records as a JSON array or as one line each.
func (a *app) printRecords(w io.Writer, recs []*record.Record) error {
	if a.flags.jsonMode {
		views := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			views = append(views, view(r))
		}
		return writeJSON(w, views)
	}
	for _, r := range recs {
		if _, err := fmt.Fprintln(w, line(r)); err != nil {
			return err
		}
	}
	return nil
}

// printRecord writes one record as a JSON object or a single line.
func (a *app) printRecord(w io.Writer, r *record.Record) error {
	if a.flags.jsonMode {
		return writeJSON(w, view(r))
	}
	_, err := fmt.Fprintln(w, line(r))
	return err
}

// line renders "<id> attr=value ..." in schema order.
func line(r *record.Record) string {
	parts := []string{r.ID()}
	for _, name := range r.Model().Schema().Names() {
		if name == models.PasswordDigest {
			continue
		}
		parts = append(parts, name+"="+cast.ToString(r.Get(name)))
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// reportError prints err to w. Validation failures print one message per
// line so each problem is visible.
func reportError(w io.Writer, err error) {
	var failed *validation.FailedError
	if errors.As(err, &failed) && !failed.Errors.Empty() {
		fmt.Fprintf(w, "%s is invalid:\n", failed.Subject)
		for _, msg := range failed.Errors.FullMessages() {
			fmt.Fprintf(w, "  %s\n", msg)
		}
		return
	}
	fmt.Fprintln(w, "Error:", err)
}
