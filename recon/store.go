package recon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timeclock/models"
	"timeclock/shifts"
)

// ErrMergeConflict is returned when concurrent writers kept invalidating
// the optimistic update past the retry budget. Callers treat it as
// retryable, not user-facing.
var ErrMergeConflict = errors.New("recon: merge conflict retries exhausted")

const mergeRetries = 3

// Store owns the per-key atomic upsert of attendance records. The unique
// index on (employee_id, shift_date) plus a conditional update make the
// merge safe against concurrent uploads covering adjacent days.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// Merge upserts one classified scan into the record for
// (employeeID, shiftDate). Insert races fall back to fetch-and-update;
// update races retry against the fresh row.
func (s *Store) Merge(ctx context.Context, a *models.ShiftAssignment, employeeID uint, shiftDate time.Time, slot shifts.Slot, ts time.Time, site string) (*models.AttendanceRecord, MergeOutcome, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < mergeRetries; attempt++ {
		var rec models.AttendanceRecord
		err := db.Where("employee_id = ? AND shift_date = ?", employeeID, shiftDate).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pair, _ := TimePair{}.Merge(slot, ts, site)
			rec = models.AttendanceRecord{
				EmployeeID: employeeID,
				ShiftDate:  shiftDate,
				TimeIn:     pair.In,
				TimeOut:    pair.Out,
				SiteIn:     pair.SiteIn,
				SiteOut:    pair.SiteOut,
			}
			rec.Status = Determine(a, &rec)
			res := db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "employee_id"}, {Name: "shift_date"}},
				DoNothing: true,
			}).Create(&rec)
			if res.Error != nil {
				return nil, MergeNoop, fmt.Errorf("creating attendance record: %w", res.Error)
			}
			if res.RowsAffected == 1 {
				return &rec, MergeApplied, nil
			}
			// A concurrent writer created the row first; merge into it.
			continue
		case err != nil:
			return nil, MergeNoop, fmt.Errorf("loading attendance record: %w", err)
		}

		pair := TimePair{In: rec.TimeIn, Out: rec.TimeOut, SiteIn: rec.SiteIn, SiteOut: rec.SiteOut}
		merged, outcome := pair.Merge(slot, ts, site)

		updates := map[string]interface{}{}
		switch outcome {
		case MergeNoop:
			return &rec, MergeNoop, nil
		case MergeApplied:
			rec.TimeIn, rec.TimeOut = merged.In, merged.Out
			rec.SiteIn, rec.SiteOut = merged.SiteIn, merged.SiteOut
			rec.Status = Determine(a, &rec)
			updates["time_in"] = rec.TimeIn
			updates["time_out"] = rec.TimeOut
			updates["site_in"] = rec.SiteIn
			updates["site_out"] = rec.SiteOut
			updates["status"] = rec.Status
		case MergeDuplicate:
			note := duplicateNote(slot, ts)
			if strings.Contains(rec.Notes, note) {
				return &rec, MergeNoop, nil
			}
			rec.Notes = appendNote(rec.Notes, note)
			updates["notes"] = rec.Notes
		}
		if cross := merged.CrossSite(); cross != rec.CrossSite {
			rec.CrossSite = cross
			updates["cross_site"] = cross
		}

		res := db.Model(&models.AttendanceRecord{}).
			Where("id = ? AND updated_at = ?", rec.ID, rec.UpdatedAt).
			Updates(updates)
		if res.Error != nil {
			return nil, MergeNoop, fmt.Errorf("updating attendance record: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return &rec, outcome, nil
		}
		s.log.Debug("merge lost optimistic update, retrying",
			zap.Uint("employee_id", employeeID),
			zap.Time("shift_date", shiftDate))
	}
	return nil, MergeNoop, ErrMergeConflict
}

// Record fetches the record for a key, if any. Used for utility24h slot
// resolution.
func (s *Store) Record(ctx context.Context, employeeID uint, shiftDate time.Time) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND shift_date = ?", employeeID, shiftDate).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func duplicateNote(slot shifts.Slot, ts time.Time) string {
	return fmt.Sprintf("duplicate %s scan at %s ignored", slot, ts.Format("2006-01-02 15:04:05"))
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "; " + note
}
