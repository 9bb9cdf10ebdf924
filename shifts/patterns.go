package shifts

import (
	"strings"
	"time"
)

// The 48 stock shift-window patterns, keyed by scheduled "in-out" clock
// times. Ranges live on the extended 0-48 axis (see HourRange): a Max past
// 24 continues into the calendar day after the shift-date, and graveyard
// patterns sit entirely past the shift-date's own evening.
//
// Three families:
//   - same-day: both ranges on the shift-date's calendar day
//   - next-day: the time-out range crosses midnight
//   - graveyard: the time-in range itself spans midnight (22:00-02:00 for a
//     00:00 start), so early-hours punches join the shift that began the
//     prior evening
var windows = map[string]Window{
	// same-day, 9h
	"05:00-14:00": {In: HourRange{2, 9.5}, Out: HourRange{9.5, 18}},
	"06:00-15:00": {In: HourRange{3, 10.5}, Out: HourRange{10.5, 19}},
	"07:00-16:00": {In: HourRange{4, 11.5}, Out: HourRange{11.5, 20}},
	"08:00-17:00": {In: HourRange{5, 12.5}, Out: HourRange{12.5, 21}},
	"09:00-18:00": {In: HourRange{6, 13.5}, Out: HourRange{13.5, 22}},
	"10:00-19:00": {In: HourRange{7, 14.5}, Out: HourRange{14.5, 23}},
	"11:00-20:00": {In: HourRange{8, 15.5}, Out: HourRange{15.5, 24}},
	"12:00-21:00": {In: HourRange{9, 16.5}, Out: HourRange{16.5, 24}},
	"13:00-22:00": {In: HourRange{10, 17.5}, Out: HourRange{17.5, 24}},
	"14:00-23:00": {In: HourRange{11, 18.5}, Out: HourRange{18.5, 24}},
	// same-day, 8h
	"05:00-13:00": {In: HourRange{2, 9}, Out: HourRange{9, 17}},
	"06:00-14:00": {In: HourRange{3, 10}, Out: HourRange{10, 18}},
	"07:00-15:00": {In: HourRange{4, 11}, Out: HourRange{11, 19}},
	"08:00-16:00": {In: HourRange{5, 12}, Out: HourRange{12, 20}},
	"09:00-17:00": {In: HourRange{6, 13}, Out: HourRange{13, 21}},
	"10:00-18:00": {In: HourRange{7, 14}, Out: HourRange{14, 22}},
	"11:00-19:00": {In: HourRange{8, 15}, Out: HourRange{15, 23}},
	"12:00-20:00": {In: HourRange{9, 16}, Out: HourRange{16, 24}},
	"13:00-21:00": {In: HourRange{10, 17}, Out: HourRange{17, 24}},
	"14:00-22:00": {In: HourRange{11, 18}, Out: HourRange{18, 24}},
	// same-day, 12h
	"06:00-18:00": {In: HourRange{3, 12}, Out: HourRange{12, 22}},
	"07:00-19:00": {In: HourRange{4, 13}, Out: HourRange{13, 23}},
	"08:00-20:00": {In: HourRange{5, 14}, Out: HourRange{14, 24}},
	// next-day, 9h
	"16:00-01:00": {In: HourRange{13, 20.5}, Out: HourRange{20.5, 29}},
	"17:00-02:00": {In: HourRange{14, 21.5}, Out: HourRange{21.5, 30}},
	"18:00-03:00": {In: HourRange{15, 22.5}, Out: HourRange{22.5, 31}},
	"19:00-04:00": {In: HourRange{16, 23.5}, Out: HourRange{23.5, 32}},
	"20:00-05:00": {In: HourRange{17, 24.5}, Out: HourRange{24.5, 33}},
	"21:00-06:00": {In: HourRange{18, 25.5}, Out: HourRange{25.5, 34}},
	"22:00-07:00": {In: HourRange{19, 26.5}, Out: HourRange{26.5, 35}},
	"23:00-08:00": {In: HourRange{20, 27.5}, Out: HourRange{27.5, 36}},
	// next-day, 8h
	"16:00-00:00": {In: HourRange{13, 20}, Out: HourRange{20, 28}},
	"17:00-01:00": {In: HourRange{14, 21}, Out: HourRange{21, 29}},
	"18:00-02:00": {In: HourRange{15, 22}, Out: HourRange{22, 30}},
	"19:00-03:00": {In: HourRange{16, 23}, Out: HourRange{23, 31}},
	"20:00-04:00": {In: HourRange{17, 24}, Out: HourRange{24, 32}},
	"21:00-05:00": {In: HourRange{18, 25}, Out: HourRange{25, 33}},
	"22:00-06:00": {In: HourRange{19, 26}, Out: HourRange{26, 34}},
	"23:00-07:00": {In: HourRange{20, 27}, Out: HourRange{27, 35}},
	// next-day, 12h
	"18:00-06:00": {In: HourRange{15, 24}, Out: HourRange{24, 34}},
	"19:00-07:00": {In: HourRange{16, 25}, Out: HourRange{25, 35}},
	"20:00-08:00": {In: HourRange{17, 26}, Out: HourRange{26, 36}},
	// graveyard
	"00:00-09:00": {In: HourRange{22, 26}, Out: HourRange{30, 37}},
	"01:00-10:00": {In: HourRange{23, 27}, Out: HourRange{31, 38}},
	"02:00-11:00": {In: HourRange{24, 28}, Out: HourRange{32, 39}},
	"00:00-08:00": {In: HourRange{22, 26}, Out: HourRange{29, 36}},
	"01:00-09:00": {In: HourRange{23, 27}, Out: HourRange{30, 37}},
	"02:00-10:00": {In: HourRange{24, 28}, Out: HourRange{31, 38}},
}

// PatternCount is the number of stock patterns in the table.
func PatternCount() int {
	return len(windows)
}

// deriveWindow rebuilds a window from the family formulas the table was
// produced with, for scheduled times outside the 48 stock patterns.
func deriveWindow(pattern string) (Window, bool) {
	parts := strings.SplitN(pattern, "-", 2)
	if len(parts) != 2 {
		return Window{}, false
	}
	in, ok1 := parseClock(parts[0])
	out, ok2 := parseClock(parts[1])
	if !ok1 || !ok2 {
		return Window{}, false
	}

	switch {
	case in <= 2: // graveyard: shift belongs to the prior evening's date
		return Window{
			In:  HourRange{in + 22, in + 26},
			Out: HourRange{out + 21, out + 28},
		}, true
	case out <= in: // next-day
		mid := (in + out + 24) / 2
		return Window{
			In:  HourRange{in - 3, mid},
			Out: HourRange{mid, out + 28},
		}, true
	default: // same-day
		mid := (in + out) / 2
		outMax := out + 4
		if outMax > 24 {
			outMax = 24
		}
		return Window{
			In:  HourRange{in - 3, mid},
			Out: HourRange{mid, outMax},
		}, true
	}
}

func parseClock(s string) (float64, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return float64(t.Hour()) + float64(t.Minute())/60, true
}
