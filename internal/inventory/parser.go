// Package inventory parses wgrib2 "short" inventories (the .idx sidecar files
// published next to NCEP GRIB2 files) and resolves the byte range of every
// message so that single messages can be fetched with HTTP range requests.
//
// An inventory line looks like
//
//	71:38795206:d=2020060100:TMP:2 m above ground:3 hour fcst:
//
// Start bytes are taken as written (0-based for NCEP files). End bytes are
// inclusive: the end of message i is the start of message i+1 minus one, and
// the last message runs to the end of the file.
package inventory

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Any '.' is turned into '-' before matching, so sub-record numbers such as
// "5.1" do not match and are rejected as malformed.
var lineRegexp = regexp.MustCompile(`^(\d+):(\d+):d=(\d{10}):([^:.?]+):([^:.?]*):(.*?):$`)

var levelBrackets = strings.NewReplacer("(", "", ")", "", "[", "", "]", "", "{", "", "}", "")

// Inventory is the ordered list of messages of one GRIB2 file.
type Inventory []*Entry

// Keys returns the matching key of every entry in inventory order.
func (inv Inventory) Keys() []string {
	keys := make([]string, len(inv))
	for i, e := range inv {
		keys[i] = e.Key()
	}
	return keys
}

// Find returns the first entry whose key equals key.
func (inv Inventory) Find(key string) (*Entry, bool) {
	for _, e := range inv {
		if e.Key() == key {
			return e, true
		}
	}
	return nil, false
}

// ParseReader reads a complete inventory from r and parses it.
func ParseReader(r io.Reader) (Inventory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	return Parse(string(data))
}

// Parse turns the text of an inventory into entries with resolved byte
// ranges. A single malformed line rejects the whole inventory because the
// end bytes depend on every start byte being known.
func Parse(text string) (Inventory, error) {
	var (
		inv   Inventory
		lines []int
	)

	raw := strings.Split(text, "\n")
	for i, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		m := lineRegexp.FindStringSubmatch(strings.ReplaceAll(line, ".", "-"))
		if m == nil {
			return nil, &MalformedLineError{Line: i + 1, Text: line}
		}

		message, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &MalformedLineError{Line: i + 1, Text: line}
		}
		start, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, &MalformedLineError{Line: i + 1, Text: line}
		}

		inv = append(inv, &Entry{
			message:   message,
			startByte: start,
			date:      m[3],
			field:     m[4],
			level:     levelBrackets.Replace(m[5]),
			step:      m[6],
		})
		lines = append(lines, i+1)
	}

	if len(inv) == 0 {
		return nil, ErrEmptyInventory
	}

	// We know where each message starts; the next start tells us where it ends.
	for i, e := range inv {
		if i == len(inv)-1 {
			e.open = true
			continue
		}
		// Start bytes must strictly increase or the inferred range is inverted.
		next := inv[i+1]
		if next.startByte <= e.startByte {
			n := lines[i+1]
			return nil, &MalformedLineError{Line: n, Text: strings.TrimSuffix(raw[n-1], "\r")}
		}
		e.endByte = next.startByte - 1
	}

	return inv, nil
}
