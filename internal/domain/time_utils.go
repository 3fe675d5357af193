package domain

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimestampLayout matches a two-digit hour:minute locale time
	DefaultTimestampLayout = "03:04 PM"
	DatetimeLayout         = "2006-01-02T15:04:05Z"
)

// TimestampFormatter renders entry timestamps in a fixed layout and location
type TimestampFormatter struct {
	Layout   string
	Location *time.Location
}

// NewTimestampFormatter builds a formatter; empty layout or unknown zone fall back to defaults
func NewTimestampFormatter(layout, zone string) TimestampFormatter {
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return TimestampFormatter{
		Layout:   layout,
		Location: LoadLocation(zone),
	}
}

// Format formats t for display
func (f TimestampFormatter) Format(t time.Time) string {
	layout := f.Layout
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(layout)
}

// LoadLocation resolves an IANA zone name, falling back to the local zone
func LoadLocation(zone string) *time.Location {
	if zone == "" {
		return time.Local
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		logrus.Warnf("Unknown time zone %q, using local time: %v", zone, err)
		return time.Local
	}
	return location
}
