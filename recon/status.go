package recon

import (
	"time"

	"timeclock/models"
)

const (
	tardyLimitMinutes  = 15
	undertimeThreshold = 60 * time.Minute
)

// Determine derives the attendance status for a record from its reconciled
// times against the scheduled shift. Pure and deterministic; it is re-run
// after every merge so partial records always carry a correct provisional
// status. advised_absence is never produced here — it is a manual mark.
func Determine(a *models.ShiftAssignment, rec *models.AttendanceRecord) models.Status {
	switch {
	case rec.TimeIn == nil && rec.TimeOut == nil:
		if a != nil && a.WorksOn(rec.ShiftDate.Weekday()) {
			return models.StatusNCNS
		}
		return models.StatusPending
	case rec.TimeIn != nil && rec.TimeOut == nil:
		return models.StatusFailedBioOut
	case rec.TimeIn == nil:
		return models.StatusFailedBioIn
	}

	if a == nil {
		return models.StatusPending
	}
	// Utility assignments have no fixed schedule to be late against.
	if a.ShiftType == models.ShiftUtility {
		return models.StatusOnTime
	}

	schedIn := a.ScheduledInOn(rec.ShiftDate)
	schedOut := a.ScheduledOutOn(rec.ShiftDate)

	// Whole minutes past scheduled-in plus grace; early arrivals go negative.
	lateMinutes := int(rec.TimeIn.Sub(schedIn.Add(time.Duration(a.GraceMinutes) * time.Minute)) / time.Minute)

	if lateMinutes > tardyLimitMinutes {
		return models.StatusHalfDay
	}
	if schedOut.Sub(*rec.TimeOut) >= undertimeThreshold {
		return models.StatusUndertime
	}
	if lateMinutes > 0 {
		return models.StatusTardy
	}
	return models.StatusOnTime
}
