package inventory

import (
	"regexp"
	"strconv"
)

var (
	stepRangeRegexp   = regexp.MustCompile(`^(\d+)-(\d+)\s(\w+)`)
	stepInstantRegexp = regexp.MustCompile(`^(\d+)\s(\w+)`)
)

// Timing is the temporal information carried by a step descriptor.
type Timing struct {
	// Step is the forecast hour the message applies to.
	Step int
	// Duration is the accumulation or averaging period in hours, nil for
	// instantaneous values.
	Duration *int
}

// ParseStep interprets step descriptors of the form "6 hour fcst" or
// "10-11 hour acc fcst". Only hour units are supported.
func ParseStep(descriptor string) (Timing, error) {
	if m := stepRangeRegexp.FindStringSubmatch(descriptor); m != nil {
		if m[3] != "hour" {
			return Timing{}, &UnsupportedUnitError{Descriptor: descriptor, Unit: m[3]}
		}
		from, err := strconv.Atoi(m[1])
		if err != nil {
			return Timing{}, &UnrecognizedStepError{Descriptor: descriptor}
		}
		to, err := strconv.Atoi(m[2])
		if err != nil {
			return Timing{}, &UnrecognizedStepError{Descriptor: descriptor}
		}
		duration := to - from
		return Timing{Step: to, Duration: &duration}, nil
	}

	if m := stepInstantRegexp.FindStringSubmatch(descriptor); m != nil {
		if m[2] != "hour" {
			return Timing{}, &UnsupportedUnitError{Descriptor: descriptor, Unit: m[2]}
		}
		step, err := strconv.Atoi(m[1])
		if err != nil {
			return Timing{}, &UnrecognizedStepError{Descriptor: descriptor}
		}
		return Timing{Step: step}, nil
	}

	return Timing{}, &UnrecognizedStepError{Descriptor: descriptor}
}
