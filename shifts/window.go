// Package shifts classifies raw punch timestamps against the named
// shift-window patterns: which shift-date a punch belongs to and whether it
// is a time-in or time-out candidate.
package shifts

import (
	"errors"
	"fmt"
	"time"

	"timeclock/models"
)

type Slot string

const (
	SlotIn  Slot = "time_in"
	SlotOut Slot = "time_out"
	// SlotAuto is returned for utility24h assignments, whose windows accept
	// any hour; the reconciliation store picks the slot from record state.
	SlotAuto Slot = "auto"
)

var (
	ErrUnknownPattern = errors.New("shifts: no window pattern for scheduled times")
	ErrOutOfWindow    = errors.New("shifts: punch outside time-in and time-out windows")
)

// HourRange is an hour-of-day interval on an extended 0-48 axis relative to
// the shift-date's midnight. Max > 24 means the range continues into the
// next calendar day: hour h is a member if h is in [Min,Max] directly, or if
// h+24 is, in which case the punch belongs to the previous shift-date.
type HourRange struct {
	Min float64
	Max float64
}

func (r HourRange) Contains(h float64) bool {
	if h >= r.Min && h <= r.Max {
		return true
	}
	return r.Max > 24 && h+24 >= r.Min && h+24 <= r.Max
}

// dayOffset is the shift-date offset in days for a member hour: 0 when the
// punch falls on the shift's own calendar date, -1 when it falls on the day
// after (so the shift-date is the previous day).
func (r HourRange) dayOffset(h float64) int {
	if h >= r.Min && h <= r.Max {
		return 0
	}
	return -1
}

// Window is one named shift pattern's pair of accepted ranges.
type Window struct {
	In  HourRange
	Out HourRange
}

type Classification struct {
	ShiftDate time.Time
	Slot      Slot
}

// Classify places a punch timestamp in the employee's shift windows.
// Utility24h assignments match any hour and return SlotAuto.
func Classify(a *models.ShiftAssignment, ts time.Time) (Classification, error) {
	if a.ShiftType == models.ShiftUtility {
		return Classification{ShiftDate: dateOf(ts), Slot: SlotAuto}, nil
	}

	w, ok := Lookup(a.Pattern())
	if !ok {
		return Classification{}, fmt.Errorf("%w: %s", ErrUnknownPattern, a.Pattern())
	}

	h := clockHours(ts)
	inOK := w.In.Contains(h)
	outOK := w.Out.Contains(h)

	switch {
	case inOK && outOK:
		// Shared boundary between the two ranges: the slot whose scheduled
		// time is nearer wins.
		cin := Classification{ShiftDate: shiftDate(ts, w.In, h), Slot: SlotIn}
		cout := Classification{ShiftDate: shiftDate(ts, w.Out, h), Slot: SlotOut}
		din := absDuration(ts.Sub(a.ScheduledInOn(cin.ShiftDate)))
		dout := absDuration(ts.Sub(a.ScheduledOutOn(cout.ShiftDate)))
		if dout < din {
			return cout, nil
		}
		return cin, nil
	case inOK:
		return Classification{ShiftDate: shiftDate(ts, w.In, h), Slot: SlotIn}, nil
	case outOK:
		return Classification{ShiftDate: shiftDate(ts, w.Out, h), Slot: SlotOut}, nil
	}
	return Classification{}, fmt.Errorf("%w: %s at %s", ErrOutOfWindow, a.Pattern(), ts.Format("15:04:05"))
}

// Lookup returns the window for a scheduled-time pattern such as
// "07:00-16:00". Unlisted patterns fall back to the family formulas so a
// roster edit outside the 48 stock patterns still classifies; the table is
// authoritative for everything it names.
func Lookup(pattern string) (Window, bool) {
	if w, ok := windows[pattern]; ok {
		return w, true
	}
	return deriveWindow(pattern)
}

func shiftDate(ts time.Time, r HourRange, h float64) time.Time {
	return dateOf(ts).AddDate(0, 0, r.dayOffset(h))
}

func dateOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}

func clockHours(ts time.Time) float64 {
	return float64(ts.Hour()) + float64(ts.Minute())/60 + float64(ts.Second())/3600
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
