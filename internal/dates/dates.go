// Package dates turns the dates people type ("Friday", "tomorrow at 3pm",
// "in 3 days", "2025-07-01") into timestamps.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnparseable is returned when no date could be read from the input.
var ErrUnparseable = errors.New("unrecognised date")

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parser reads natural-language dates relative to a reference time.
type Parser struct {
	w *when.Parser
}

// NewParser returns a Parser with the English and common rule sets.
func NewParser() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse reads s relative to now. ISO forms are tried first. Results are UTC.
func (p *Parser) Parse(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseable
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	res, err := p.w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnparseable, s, err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	return res.Time.UTC(), nil
}

// IsPast reports whether t falls on a calendar day before now's.
// Any time today still counts as not past.
func IsPast(t, now time.Time) bool {
	ty, tm, td := t.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}

// Format renders t for chat replies, e.g. "Fri, Jun 20 2025".
func Format(t time.Time) string {
	return t.UTC().Format("Mon, Jan 2 2006")
}
