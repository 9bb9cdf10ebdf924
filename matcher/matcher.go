// Package matcher resolves free-text device names to canonical employees.
//
// Devices render names inconsistently ("CABARLIZA", "Cabarliza A",
// "Robinios Je"), so resolution runs an ordered cascade of matching
// strategies, falling back to the scan timestamp against each remaining
// candidate's shift window when strings alone cannot decide.
package matcher

import (
	"strings"
	"time"

	"timeclock/models"
	"timeclock/shifts"
)

// Reasons a scan could not be auto-resolved.
const (
	ReasonNoMatch   = "no_match"
	ReasonAmbiguous = "ambiguous"
)

type Config struct {
	// PreferTwoLetter gives the surname+two-letter pattern precedence over
	// surname+initial when each independently narrows to a different single
	// candidate. The source rosters behave this way; flip it for fleets
	// whose exports abbreviate the other way around.
	PreferTwoLetter bool
}

func DefaultConfig() Config {
	return Config{PreferTwoLetter: true}
}

// Entry is one active employee plus their active shift assignment (nil when
// the employee has none; such candidates lose timing tie-breaks).
type Entry struct {
	Employee   models.Employee
	Assignment *models.ShiftAssignment
}

type Result struct {
	Employee   *models.Employee
	Assignment *models.ShiftAssignment
	Candidates []uint
	Reason     string
}

func (r Result) Matched() bool { return r.Employee != nil }

type Matcher struct {
	entries []Entry
	cfg     Config
}

func New(entries []Entry, cfg Config) *Matcher {
	return &Matcher{entries: entries, cfg: cfg}
}

// Resolve applies the strategy cascade in priority order:
//
//  1. unique surname: exactly one active employee's surname equals the
//     trailing token of the raw name
//  2. surname + single initial ("Cabarliza A")
//  3. surname + two letters ("Robinios Je") — wins over 2 when it narrows
//     to exactly one candidate (configurable)
//
// Anything still ambiguous is tie-broken by whether the scan timestamp
// falls inside a candidate's shift window; a tie or an empty result routes
// the scan to verification.
func (m *Matcher) Resolve(rawName string, ts time.Time) Result {
	tokens := normalize(rawName)
	if len(tokens) == 0 {
		return Result{Reason: ReasonNoMatch}
	}

	bySurname := m.filter(func(e Entry) bool {
		return equalFold(e.Employee.Surname, tokens[len(tokens)-1])
	})

	var byInitial, byTwoLetter []Entry
	if len(tokens) >= 2 {
		surname, hint := tokens[0], tokens[1]
		byInitial = m.filter(func(e Entry) bool {
			return equalFold(e.Employee.Surname, surname) &&
				hasPrefixFold(e.Employee.GivenName, hint[:1])
		})
		if len(hint) >= 2 {
			byTwoLetter = m.filter(func(e Entry) bool {
				return equalFold(e.Employee.Surname, surname) &&
					hasPrefixFold(e.Employee.GivenName, hint[:2])
			})
		}
	}

	// With PreferTwoLetter, an exact two-letter hit outranks even the
	// unique-surname pattern; different patterns can read the same raw
	// string as different people ("Garcia Lu": surname Lu vs Lu* Garcia).
	if m.cfg.PreferTwoLetter && len(byTwoLetter) == 1 {
		return resolved(byTwoLetter[0])
	}
	if len(bySurname) == 1 {
		return resolved(bySurname[0])
	}
	if len(byInitial) == 1 {
		return resolved(byInitial[0])
	}
	if len(byTwoLetter) == 1 {
		return resolved(byTwoLetter[0])
	}

	pool := firstNonEmpty(byTwoLetter, byInitial, bySurname)
	if len(pool) == 0 {
		return Result{Reason: ReasonNoMatch}
	}
	return m.tieBreak(pool, ts)
}

// tieBreak keeps the candidates whose shift window contains the scan
// timestamp. Exactly one survivor resolves the scan; zero or several leave
// it ambiguous.
func (m *Matcher) tieBreak(pool []Entry, ts time.Time) Result {
	var inWindow []Entry
	for _, e := range pool {
		if e.Assignment == nil {
			continue
		}
		if _, err := shifts.Classify(e.Assignment, ts); err == nil {
			inWindow = append(inWindow, e)
		}
	}
	if len(inWindow) == 1 {
		return resolved(inWindow[0])
	}

	ids := make([]uint, 0, len(pool))
	for _, e := range pool {
		ids = append(ids, e.Employee.ID)
	}
	return Result{Candidates: ids, Reason: ReasonAmbiguous}
}

func (m *Matcher) filter(keep func(Entry) bool) []Entry {
	var out []Entry
	for _, e := range m.entries {
		if e.Employee.Active && keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func resolved(e Entry) Result {
	emp := e.Employee
	return Result{Employee: &emp, Assignment: e.Assignment}
}

func firstNonEmpty(sets ...[]Entry) []Entry {
	for _, s := range sets {
		if len(s) > 0 {
			return s
		}
	}
	return nil
}

// normalize lowercases, strips punctuation devices sprinkle into names, and
// splits into tokens.
func normalize(raw string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '_', '-':
			return ' '
		}
		return r
	}, raw)
	return strings.Fields(strings.ToLower(strings.TrimSpace(cleaned)))
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), strings.ToLower(prefix))
}
