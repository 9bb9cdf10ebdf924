package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"timeclock/models"
)

var ErrRecordNotFound = errors.New("recon: attendance record not found")

// Queue is the verification read model: reconciled records needing review
// plus scans that never made it into a record.
type Queue struct {
	Records    []models.AttendanceRecord `json:"records"`
	Unresolved []models.UnresolvedScan   `json:"unresolved"`
}

// VerificationQueue selects unverified records with a flagged status or the
// cross-site flag, and open unresolved scans.
func (e *Engine) VerificationQueue(ctx context.Context) (*Queue, error) {
	q := &Queue{}
	err := e.db.WithContext(ctx).
		Preload("Employee").
		Where("verified = ?", false).
		Where("(status IN ? OR cross_site = ?)", models.FlaggedStatuses, true).
		Order("shift_date desc, employee_id").
		Find(&q.Records).Error
	if err != nil {
		return nil, fmt.Errorf("loading verification queue: %w", err)
	}
	err = e.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("scanned_at desc").
		Find(&q.Unresolved).Error
	if err != nil {
		return nil, fmt.Errorf("loading unresolved scans: %w", err)
	}
	return q, nil
}

// RecordUpdate is a point edit from the verification queue. Nil fields are
// left alone; ClearTimeIn/ClearTimeOut null a slot explicitly.
type RecordUpdate struct {
	Status       *models.Status `json:"status,omitempty"`
	TimeIn       *time.Time     `json:"time_in,omitempty"`
	TimeOut      *time.Time     `json:"time_out,omitempty"`
	ClearTimeIn  bool           `json:"clear_time_in,omitempty"`
	ClearTimeOut bool           `json:"clear_time_out,omitempty"`
	Notes        *string        `json:"notes,omitempty"`
	Verified     *bool          `json:"verified,omitempty"`
}

func (u RecordUpdate) touchesTimes() bool {
	return u.TimeIn != nil || u.TimeOut != nil || u.ClearTimeIn || u.ClearTimeOut
}

// UpdateRecord applies a point edit. Status is re-derived only when the
// times changed; a manual status edit alone stands as given.
func (e *Engine) UpdateRecord(ctx context.Context, id uint, upd RecordUpdate) (*models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	if err := e.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("loading attendance record: %w", err)
	}

	if upd.ClearTimeIn {
		rec.TimeIn = nil
		rec.SiteIn = ""
	}
	if upd.ClearTimeOut {
		rec.TimeOut = nil
		rec.SiteOut = ""
	}
	if upd.TimeIn != nil {
		rec.TimeIn = upd.TimeIn
	}
	if upd.TimeOut != nil {
		rec.TimeOut = upd.TimeOut
	}
	if upd.Notes != nil {
		rec.Notes = *upd.Notes
	}
	if upd.Verified != nil {
		rec.Verified = *upd.Verified
	}
	if upd.Status != nil {
		rec.Status = *upd.Status
	}

	if upd.touchesTimes() {
		a, err := e.activeAssignment(ctx, rec.EmployeeID)
		if err != nil {
			return nil, err
		}
		rec.Status = Determine(a, &rec)
	}
	rec.CrossSite = TimePair{In: rec.TimeIn, Out: rec.TimeOut, SiteIn: rec.SiteIn, SiteOut: rec.SiteOut}.CrossSite()

	if err := e.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return nil, fmt.Errorf("saving attendance record: %w", err)
	}
	return &rec, nil
}

// MarkAdvised bulk-transitions records to advised_absence and closes them
// out of the queue.
func (e *Engine) MarkAdvised(ctx context.Context, ids []uint) (int64, error) {
	res := e.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":   models.StatusAdvisedAbsent,
			"verified": true,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("marking advised: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteRecords bulk-deletes attendance records by id set.
func (e *Engine) DeleteRecords(ctx context.Context, ids []uint) (int64, error) {
	res := e.db.WithContext(ctx).Delete(&models.AttendanceRecord{}, ids)
	if res.Error != nil {
		return 0, fmt.Errorf("deleting records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ResolveScans closes unresolved scans after manual review.
func (e *Engine) ResolveScans(ctx context.Context, ids []uint) (int64, error) {
	res := e.db.WithContext(ctx).
		Model(&models.UnresolvedScan{}).
		Where("id IN ?", ids).
		Update("resolved", true)
	if res.Error != nil {
		return 0, fmt.Errorf("resolving scans: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (e *Engine) activeAssignment(ctx context.Context, employeeID uint) (*models.ShiftAssignment, error) {
	var a models.ShiftAssignment
	err := e.db.WithContext(ctx).
		Where("employee_id = ? AND is_active = ?", employeeID, true).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active assignment: %w", err)
	}
	return &a, nil
}
