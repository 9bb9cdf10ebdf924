package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftNight     ShiftType = "night"
	ShiftGraveyard ShiftType = "graveyard"
	ShiftUtility   ShiftType = "utility24h"
)

type Employee struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	FullName  string         `gorm:"not null;size:200" json:"full_name"`
	GivenName string         `gorm:"not null;size:100;index" json:"given_name"`
	Surname   string         `gorm:"not null;size:100;index" json:"surname"`
	Active    bool           `gorm:"default:true;index" json:"active"`

	Assignments []ShiftAssignment `gorm:"foreignKey:EmployeeID" json:"assignments,omitempty"`
}

// ShiftAssignment pins an employee to one of the named shift patterns.
// At most one assignment is active per employee; activating a new one
// deactivates the previous (see roster.Apply).
type ShiftAssignment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	EmployeeID    uint       `gorm:"not null;index" json:"employee_id"`
	ShiftType     ShiftType  `gorm:"not null;size:20" json:"shift_type"`
	ScheduledIn   string     `gorm:"not null;size:5" json:"scheduled_in"`  // "15:04"
	ScheduledOut  string     `gorm:"not null;size:5" json:"scheduled_out"` // "15:04"
	WorkDays      string     `gorm:"not null;size:40" json:"work_days"`    // "Mon,Tue,Wed,Thu,Fri"
	GraceMinutes  int        `gorm:"not null;default:10" json:"grace_minutes"`
	EffectiveDate time.Time  `gorm:"not null;type:date" json:"effective_date"`
	EndDate       *time.Time `gorm:"type:date" json:"end_date,omitempty"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`
}

// Pattern is the key into the shift-window table, e.g. "07:00-16:00".
func (a *ShiftAssignment) Pattern() string {
	return a.ScheduledIn + "-" + a.ScheduledOut
}

func (a *ShiftAssignment) WorksOn(day time.Weekday) bool {
	short := day.String()[:3]
	for _, d := range strings.Split(a.WorkDays, ",") {
		if strings.EqualFold(strings.TrimSpace(d), short) {
			return true
		}
	}
	return false
}

// ScheduledInOn resolves the scheduled time-in to a concrete instant on the
// given shift-date. Graveyard patterns start on the calendar day after their
// shift-date, so an early-hours scheduled-in rolls forward one day.
func (a *ShiftAssignment) ScheduledInOn(shiftDate time.Time) time.Time {
	t := atClock(shiftDate, a.ScheduledIn)
	if a.ShiftType == ShiftGraveyard && clockHour(a.ScheduledIn) <= 4 {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// ScheduledOutOn resolves the scheduled time-out on the given shift-date,
// rolling to the next calendar day for overnight patterns.
func (a *ShiftAssignment) ScheduledOutOn(shiftDate time.Time) time.Time {
	t := atClock(shiftDate, a.ScheduledOut)
	in := a.ScheduledInOn(shiftDate)
	for !t.After(in) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func atClock(date time.Time, clock string) time.Time {
	hh, mm := clockParts(clock)
	return time.Date(date.Year(), date.Month(), date.Day(), hh, mm, 0, 0, date.Location())
}

func clockHour(clock string) int {
	hh, _ := clockParts(clock)
	return hh
}

func clockParts(clock string) (int, int) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}
