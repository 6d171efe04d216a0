package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ParseIntSet parses a steps/runhours expression into a sorted, de-duplicated
// list. Accepted forms are a single value ("6"), a comma separated list
// ("0,3,6") and a MARS style range ("0/to/18/by/3", bounds inclusive).
func ParseIntSet(expr string) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty expression")
	}

	var values []int

	switch {
	case strings.Contains(expr, "/"):
		parts := strings.Split(expr, "/")
		if len(parts) != 5 || !strings.EqualFold(parts[1], "to") || !strings.EqualFold(parts[3], "by") {
			return nil, fmt.Errorf("%q: expected <from>/to/<to>/by/<by>", expr)
		}

		from, err := parseNonNegative(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", expr, err)
		}
		to, err := parseNonNegative(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", expr, err)
		}
		by, err := parseNonNegative(parts[4])
		if err != nil {
			return nil, fmt.Errorf("%q: %w", expr, err)
		}
		if by == 0 {
			return nil, fmt.Errorf("%q: increment must be positive", expr)
		}
		if to < from {
			return nil, fmt.Errorf("%q: upper bound below lower bound", expr)
		}

		for v := from; v <= to; v += by {
			values = append(values, v)
		}
	default:
		for _, p := range strings.Split(expr, ",") {
			v, err := parseNonNegative(p)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", expr, err)
			}
			values = append(values, v)
		}
	}

	slices.Sort(values)
	return slices.Compact(values), nil
}

func parseNonNegative(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative number %d", v)
	}
	return v, nil
}
