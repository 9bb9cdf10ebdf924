package models

import (
	"time"

	"gorm.io/gorm"
)

type Status string

const (
	StatusOnTime        Status = "on_time"
	StatusTardy         Status = "tardy"
	StatusHalfDay       Status = "half_day"
	StatusFailedBioOut  Status = "failed_bio_out"
	StatusFailedBioIn   Status = "failed_bio_in"
	StatusNCNS          Status = "ncns"
	StatusAdvisedAbsent Status = "advised_absence"
	StatusUndertime     Status = "undertime"
	StatusPending       Status = "pending"
)

// FlaggedStatuses are the statuses that put a record in the verification
// queue.
var FlaggedStatuses = []Status{
	StatusHalfDay,
	StatusNCNS,
	StatusFailedBioIn,
	StatusFailedBioOut,
	StatusUndertime,
}

func (s Status) Flagged() bool {
	for _, f := range FlaggedStatuses {
		if s == f {
			return true
		}
	}
	return false
}

// AttendanceRecord is the reconciled attendance row for one employee on one
// shift-date. ShiftDate is the shift's calendar date, which for overnight
// shifts differs from the calendar date of individual punches.
type AttendanceRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	EmployeeID uint           `gorm:"not null;uniqueIndex:idx_employee_shift_date" json:"employee_id"`
	Employee   Employee       `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	ShiftDate  time.Time      `gorm:"not null;type:date;uniqueIndex:idx_employee_shift_date" json:"shift_date"`
	TimeIn     *time.Time     `json:"time_in,omitempty"`
	TimeOut    *time.Time     `json:"time_out,omitempty"`
	SiteIn     string         `gorm:"size:50" json:"site_in,omitempty"`
	SiteOut    string         `gorm:"size:50" json:"site_out,omitempty"`
	Status     Status         `gorm:"not null;size:20;index" json:"status"`
	CrossSite  bool           `gorm:"not null;default:false" json:"cross_site"`
	Verified   bool           `gorm:"not null;default:false" json:"verified"`
	Notes      string         `gorm:"size:1000" json:"notes,omitempty"`
}

// NeedsReview reports whether the record belongs in the verification queue.
func (r *AttendanceRecord) NeedsReview() bool {
	return r.Status.Flagged() || r.CrossSite
}

type StatusCount struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
}
