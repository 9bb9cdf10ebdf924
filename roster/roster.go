// Package roster imports employees and shift assignments from a YAML file.
// Administrative screens live elsewhere; this is how the reconciliation
// engine's ShiftAssignment lookup gets populated in this deployment.
package roster

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"timeclock/models"
)

type File struct {
	Employees []EmployeeSpec `yaml:"employees"`
}

type EmployeeSpec struct {
	Name       string          `yaml:"name"` // "Given [Middle] Surname"
	Active     *bool           `yaml:"active,omitempty"`
	Assignment *AssignmentSpec `yaml:"assignment,omitempty"`
}

type AssignmentSpec struct {
	ShiftType     string `yaml:"shift_type"`
	ScheduledIn   string `yaml:"scheduled_in"`  // "15:04"
	ScheduledOut  string `yaml:"scheduled_out"` // "15:04"
	WorkDays      string `yaml:"work_days"`     // "Mon,Tue,Wed,Thu,Fri"
	GraceMinutes  int    `yaml:"grace_minutes"`
	EffectiveDate string `yaml:"effective_date"` // "2006-01-02"
	EndDate       string `yaml:"end_date,omitempty"`
}

func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading roster: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	return &f, nil
}

// Apply upserts the roster. Employees are keyed by full name; giving an
// employee a new assignment deactivates any prior active one, keeping the
// at-most-one-active invariant.
func Apply(db *gorm.DB, f *File, log *zap.Logger) error {
	for i, spec := range f.Employees {
		if err := applyEmployee(db, spec); err != nil {
			return fmt.Errorf("roster entry %d (%s): %w", i+1, spec.Name, err)
		}
	}
	log.Info("roster applied", zap.Int("employees", len(f.Employees)))
	return nil
}

func applyEmployee(db *gorm.DB, spec EmployeeSpec) error {
	given, surname, err := splitName(spec.Name)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var emp models.Employee
		err := tx.Where("full_name = ?", spec.Name).First(&emp).Error
		if err == gorm.ErrRecordNotFound {
			emp = models.Employee{FullName: spec.Name, GivenName: given, Surname: surname, Active: true}
			if err := tx.Create(&emp).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if spec.Active != nil && emp.Active != *spec.Active {
			emp.Active = *spec.Active
			if err := tx.Save(&emp).Error; err != nil {
				return err
			}
		}

		if spec.Assignment == nil {
			return nil
		}
		a, err := buildAssignment(emp.ID, spec.Assignment)
		if err != nil {
			return err
		}

		// Identical active assignment already in place: replay no-op.
		var existing models.ShiftAssignment
		err = tx.Where("employee_id = ? AND is_active = ?", emp.ID, true).First(&existing).Error
		if err == nil && sameAssignment(&existing, a) {
			return nil
		}
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}

		if err := tx.Model(&models.ShiftAssignment{}).
			Where("employee_id = ? AND is_active = ?", emp.ID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(a).Error
	})
}

func buildAssignment(employeeID uint, spec *AssignmentSpec) (*models.ShiftAssignment, error) {
	st := models.ShiftType(strings.ToLower(strings.TrimSpace(spec.ShiftType)))
	switch st {
	case models.ShiftMorning, models.ShiftAfternoon, models.ShiftNight, models.ShiftGraveyard, models.ShiftUtility:
	default:
		return nil, fmt.Errorf("unknown shift type %q", spec.ShiftType)
	}
	for _, clock := range []string{spec.ScheduledIn, spec.ScheduledOut} {
		if _, err := time.Parse("15:04", clock); err != nil {
			return nil, fmt.Errorf("bad scheduled time %q", clock)
		}
	}
	effective, err := time.Parse("2006-01-02", spec.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("bad effective date %q", spec.EffectiveDate)
	}
	a := &models.ShiftAssignment{
		EmployeeID:    employeeID,
		ShiftType:     st,
		ScheduledIn:   spec.ScheduledIn,
		ScheduledOut:  spec.ScheduledOut,
		WorkDays:      spec.WorkDays,
		GraceMinutes:  spec.GraceMinutes,
		EffectiveDate: effective,
		IsActive:      true,
	}
	if spec.EndDate != "" {
		end, err := time.Parse("2006-01-02", spec.EndDate)
		if err != nil {
			return nil, fmt.Errorf("bad end date %q", spec.EndDate)
		}
		a.EndDate = &end
	}
	return a, nil
}

func sameAssignment(a, b *models.ShiftAssignment) bool {
	return a.ShiftType == b.ShiftType &&
		a.ScheduledIn == b.ScheduledIn &&
		a.ScheduledOut == b.ScheduledOut &&
		a.WorkDays == b.WorkDays &&
		a.GraceMinutes == b.GraceMinutes &&
		a.EffectiveDate.Equal(b.EffectiveDate)
}

func splitName(full string) (given, surname string, err error) {
	fields := strings.Fields(strings.TrimSpace(full))
	if len(fields) < 2 {
		return "", "", fmt.Errorf("need given name and surname, got %q", full)
	}
	return fields[0], fields[len(fields)-1], nil
}
