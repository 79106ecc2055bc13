package schedule

import (
	"fmt"
	"time"
)

const (
	// SlotGranularity is the fixed bookable slot length.
	SlotGranularity = 30 * time.Minute

	// HorizonDays bounds how far ahead availability and recurrence are ever
	// computed.
	HorizonDays = 30

	// DateLayout is the canonical date format used in slot identifiers.
	DateLayout = "2006-01-02"
)

// CanonicalSlotID derives a stable slot identifier from the slot's date and
// its UTC endpoints: "<date>-HHMM-HHMM", zero-padded. Two slots covering the
// same UTC interval on the same date always produce the same id regardless of
// which timezone created them, which makes the id usable as a dedup key.
func CanonicalSlotID(date string, startUTC, endUTC time.Time) string {
	s := startUTC.UTC()
	e := endUTC.UTC()
	return fmt.Sprintf("%s-%02d%02d-%02d%02d", date, s.Hour(), s.Minute(), e.Hour(), e.Minute())
}

// SlotID is CanonicalSlotID with the date taken from the start instant.
func SlotID(startUTC, endUTC time.Time) string {
	return CanonicalSlotID(startUTC.UTC().Format(DateLayout), startUTC, endUTC)
}

// WallClock is a zone-local calendar reading of an instant.
type WallClock struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
}

// ToLocal projects a UTC instant into the named IANA zone's calendar fields,
// following the timezone database's DST rules.
func ToLocal(instantUTC time.Time, zone string) (WallClock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return WallClock{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, zone)
	}
	t := instantUTC.In(loc)
	return WallClock{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}, nil
}

// ToUTC converts a zone-local wall-clock reading back to a UTC instant. It
// round-trips with ToLocal for any instant that does not fall inside a DST
// transition window; ambiguous or skipped wall-clock times resolve the way
// time.Date resolves them.
func ToUTC(wc WallClock, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, zone)
	}
	return time.Date(wc.Year, wc.Month, wc.Day, wc.Hour, wc.Minute, 0, 0, loc).UTC(), nil
}
