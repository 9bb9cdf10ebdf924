// Package recon merges classified scans into per-shift-date attendance
// records and derives their status. The merge is the idempotent heart of
// the system: any number of overlapping uploads, processed in any order,
// converge on the same records.
package recon

import (
	"time"

	"timeclock/shifts"
)

type MergeOutcome int

const (
	// MergeNoop: the slot already holds this exact value (file replay).
	MergeNoop MergeOutcome = iota
	// MergeApplied: an empty slot was filled.
	MergeApplied
	// MergeDuplicate: the slot was already set to a different value; the
	// earliest-received value is kept and the scan only leaves a note.
	MergeDuplicate
)

// TimePair is the reconciled (time-in, time-out) pair with the sites the
// punches were recorded at.
type TimePair struct {
	In      *time.Time
	Out     *time.Time
	SiteIn  string
	SiteOut string
}

// Merge folds one classified scan into the pair: fill-if-empty,
// keep-earliest-received-on-conflict. Never discards a stored value.
func (p TimePair) Merge(slot shifts.Slot, ts time.Time, site string) (TimePair, MergeOutcome) {
	switch slot {
	case shifts.SlotIn:
		if p.In == nil {
			p.In = &ts
			p.SiteIn = site
			return p, MergeApplied
		}
		if p.In.Equal(ts) {
			return p, MergeNoop
		}
		return p, MergeDuplicate
	case shifts.SlotOut:
		if p.Out == nil {
			p.Out = &ts
			p.SiteOut = site
			return p, MergeApplied
		}
		if p.Out.Equal(ts) {
			return p, MergeNoop
		}
		return p, MergeDuplicate
	}
	return p, MergeNoop
}

// CrossSite reports whether the two punches came from different sites.
func (p TimePair) CrossSite() bool {
	return p.SiteIn != "" && p.SiteOut != "" && p.SiteIn != p.SiteOut
}
