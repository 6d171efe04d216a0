// Package matcher resolves configured field patterns against a parsed
// inventory and produces the ordered list of byte ranges to download.
package matcher

import (
	"fmt"
	"regexp"

	"github.com/javi11/gribfetch/internal/config"
	"github.com/javi11/gribfetch/internal/inventory"
)

// Options controls how strict resolution is.
type Options struct {
	// Strict turns missing fields into a MissingFieldsError.
	Strict bool
	// ValidateTiming parses the step descriptor of every selected entry.
	ValidateTiming bool
}

type field struct {
	name    string
	pattern string
	re      *regexp.Regexp
}

// Matcher holds the compiled field patterns. It is safe for concurrent use.
type Matcher struct {
	fields []field
	opts   Options
}

// Plan is the ordered download plan for one file. Ranges, Fields and Keys
// are parallel slices in configured field order.
type Plan struct {
	Ranges  []inventory.ByteRange
	Fields  []string
	Keys    []string
	Missing []string
}

// Empty reports whether there is nothing to fetch.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Ranges) == 0
}

// Strings returns the ranges formatted as "start-end" or "start-".
func (p *Plan) Strings() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.Ranges))
	for i, r := range p.Ranges {
		out[i] = r.String()
	}
	return out
}

// New compiles patterns. A pattern matches an inventory key when it matches
// at the start of the key.
func New(patterns []config.FieldPattern, opts Options) (*Matcher, error) {
	m := &Matcher{
		fields: make([]field, 0, len(patterns)),
		opts:   opts,
	}

	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p.Pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid pattern %q: %w", p.Name, p.Pattern, err)
		}
		m.fields = append(m.fields, field{name: p.Name, pattern: p.Pattern, re: re})
	}

	return m, nil
}

// Resolve selects exactly one entry per field. A field matching no entry is
// reported in Plan.Missing; in strict mode the plan is returned together
// with a MissingFieldsError. A field matching more than one entry aborts
// the whole resolution.
func (m *Matcher) Resolve(inv inventory.Inventory) (*Plan, error) {
	plan := &Plan{}

	for _, f := range m.fields {
		var matches []*inventory.Entry
		for _, e := range inv {
			if f.re.MatchString(e.Key()) {
				matches = append(matches, e)
			}
		}

		switch len(matches) {
		case 0:
			plan.Missing = append(plan.Missing, f.name)
			continue
		case 1:
		default:
			keys := make([]string, len(matches))
			for i, e := range matches {
				keys[i] = e.Key()
			}
			return nil, &AmbiguousFieldError{Field: f.name, Pattern: f.pattern, Keys: keys}
		}

		selected := matches[0]
		if m.opts.ValidateTiming {
			if err := validateTiming(selected); err != nil {
				return nil, &TimingError{Field: f.name, Key: selected.Key(), Err: err}
			}
		}

		plan.Ranges = append(plan.Ranges, selected.Range())
		plan.Fields = append(plan.Fields, f.name)
		plan.Keys = append(plan.Keys, selected.Key())
	}

	if m.opts.Strict && len(plan.Missing) > 0 {
		return plan, &MissingFieldsError{Fields: plan.Missing}
	}

	return plan, nil
}

func validateTiming(e *inventory.Entry) error {
	if _, err := e.ForecastStep(); err != nil {
		return err
	}
	_, _, err := e.Duration()
	return err
}
