package inventory

import (
	"fmt"
	"strconv"
)

// ByteRange is an inclusive byte range inside a remote GRIB2 file. Open
// ranges run to the end of the file.
type ByteRange struct {
	Start int64
	End   int64
	Open  bool
}

// String formats the range the way the Range header expects it after the
// "bytes=" preamble: "start-end" or "start-".
func (r ByteRange) String() string {
	if r.Open {
		return strconv.FormatInt(r.Start, 10) + "-"
	}
	return strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10)
}

// Header returns the full Range header value.
func (r ByteRange) Header() string {
	return "bytes=" + r.String()
}

// Length returns the number of bytes covered, or -1 for open ranges.
func (r ByteRange) Length() int64 {
	if r.Open {
		return -1
	}
	return r.End - r.Start + 1
}

// Entry is one message of a GRIB2 inventory with its resolved byte range.
type Entry struct {
	message   int
	startByte int64
	endByte   int64
	open      bool
	date      string
	field     string
	level     string
	step      string
}

// MessageNumber returns the message number from the first inventory column.
func (e *Entry) MessageNumber() int { return e.message }

// StartByte returns the offset of the message as written in the inventory.
func (e *Entry) StartByte() int64 { return e.startByte }

// EndByte returns the inclusive end of the message. ok is false for the last
// message of the inventory, which runs to the end of the file.
func (e *Entry) EndByte() (end int64, ok bool) {
	if e.open {
		return 0, false
	}
	return e.endByte, true
}

// Date returns the raw 10 digit reference time (YYYYMMDDHH).
func (e *Entry) Date() string { return e.date }

// Field returns the parameter name, e.g. "TMP".
func (e *Entry) Field() string { return e.field }

// Level returns the level description with brackets removed.
func (e *Entry) Level() string { return e.level }

// StepDescriptor returns the raw step text, e.g. "6 hour fcst".
func (e *Entry) StepDescriptor() string { return e.step }

// Key returns "field:level:step", the string field patterns are matched against.
func (e *Entry) Key() string {
	return e.field + ":" + e.level + ":" + e.step
}

// Range returns the byte range of the message.
func (e *Entry) Range() ByteRange {
	return ByteRange{Start: e.startByte, End: e.endByte, Open: e.open}
}

// ForecastStep returns the forecast hour of the message.
func (e *Entry) ForecastStep() (int, error) {
	t, err := ParseStep(e.step)
	if err != nil {
		return 0, err
	}
	return t.Step, nil
}

// Duration returns the accumulation/averaging period in hours. ok is false
// for instantaneous values.
func (e *Entry) Duration() (hours int, ok bool, err error) {
	t, err := ParseStep(e.step)
	if err != nil {
		return 0, false, err
	}
	if t.Duration == nil {
		return 0, false, nil
	}
	return *t.Duration, true, nil
}

func (e *Entry) String() string {
	end := "end of file"
	if !e.open {
		end = strconv.FormatInt(e.endByte, 10)
	}
	timing := "unknown step"
	if t, err := ParseStep(e.step); err == nil {
		timing = fmt.Sprintf("+%dh; current value", t.Step)
		if t.Duration != nil {
			timing = fmt.Sprintf("+%dh; %dh period", t.Step, *t.Duration)
		}
	}
	return fmt.Sprintf("%10d-%12s '%s' (%s)", e.startByte, end, e.Key(), timing)
}
