// Package capture reads the capture date embedded in a photograph's EXIF data.
package capture

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

const exifDateLayout = "2006:01:02"

// Date is a calendar day on which a photograph was taken. The zero value is the
// NotFound sentinel.
type Date struct {
	day   time.Time
	found bool
}

// NotFound is returned when the photograph carries no readable capture timestamp.
var NotFound = Date{}

// On returns a Date for the calendar day of t.
func On(t time.Time) Date {
	return Date{day: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), found: true}
}

// Found reports whether the date came from embedded metadata.
func (d Date) Found() bool { return d.found }

// Time returns the capture day at midnight UTC, or the zero time for NotFound.
func (d Date) Time() time.Time { return d.day }

// String renders the date as YYYY-MM-DD, or "Date not found".
func (d Date) String() string {
	if !d.found {
		return "Date not found"
	}
	return d.day.Format(time.DateOnly)
}

// Extract returns the capture day recorded in the EXIF DateTime tag, falling
// back to DateTimeOriginal. It never fails: missing or undecodable metadata
// yields NotFound.
func Extract(data []byte) Date {
	if len(data) == 0 {
		return NotFound
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return NotFound
	}
	for _, field := range []exif.FieldName{exif.DateTime, exif.DateTimeOriginal} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		if date, ok := parseExifDate(raw); ok {
			return date
		}
	}
	return NotFound
}

// parseExifDate accepts "YYYY:MM:DD hh:mm:ss" and uses the date part only.
func parseExifDate(raw string) (Date, bool) {
	raw = strings.Trim(raw, "\x00 \t")
	if raw == "" {
		return NotFound, false
	}
	datePart, _, _ := strings.Cut(raw, " ")
	day, err := time.Parse(exifDateLayout, datePart)
	if err != nil {
		day, err = time.Parse(time.DateOnly, datePart)
		if err != nil {
			return NotFound, false
		}
	}
	return On(day), true
}
