package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string. Anything that does not parse yields
// nil, which callers store as "no deadline".
func ParseDate(raw string) *datatypes.Date {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	d := datatypes.Date(t)
	return &d
}

// DateOf returns the calendar date of t in t's location, pinned to UTC
// midnight so that stored dates compare correctly.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FormatDate renders d as YYYY-MM-DD, or nil when d is nil.
func FormatDate(d *datatypes.Date) *string {
	if d == nil {
		return nil
	}
	s := time.Time(*d).Format(DateLayout)
	return &s
}
