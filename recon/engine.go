package recon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timeclock/matcher"
	"timeclock/models"
	"timeclock/shifts"
)

// ErrMissingFileDate aborts a batch: the declared file date is the one
// structurally required input besides the file itself.
var ErrMissingFileDate = errors.New("recon: file date is required")

// Scan is one parsed raw punch handed to the engine.
type Scan struct {
	DeviceID   string
	DeviceUser string
	RawName    string
	Mode       string
	Timestamp  time.Time
}

// Summary reports what one ingested batch did.
type Summary struct {
	BatchID    string   `json:"batch_id"`
	Total      int      `json:"total"`
	Matched    int      `json:"matched"`
	Unmatched  int      `json:"unmatched"`
	Flagged    int      `json:"flagged"`
	Duplicates int      `json:"duplicates"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Engine runs the reconciliation pipeline: audit append, name matching,
// shift-window classification, idempotent merge, status derivation, review
// routing.
type Engine struct {
	db         *gorm.DB
	store      *Store
	matcherCfg matcher.Config
	log        *zap.Logger
}

func NewEngine(db *gorm.DB, log *zap.Logger, cfg matcher.Config) *Engine {
	return &Engine{
		db:         db,
		store:      NewStore(db, log),
		matcherCfg: cfg,
		log:        log,
	}
}

func (e *Engine) Store() *Store { return e.store }

// Ingest processes one batch of raw scans from a single file. Scans are
// ordered by ascending timestamp so earliest-received merge semantics are
// deterministic; every scan is appended to the audit trail whatever its
// outcome.
func (e *Engine) Ingest(ctx context.Context, scans []Scan, fileDate time.Time, site string, warnings []string) (Summary, error) {
	if fileDate.IsZero() {
		return Summary{}, ErrMissingFileDate
	}

	sum := Summary{
		BatchID:  uuid.NewString(),
		Total:    len(scans),
		Warnings: warnings,
	}

	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].Timestamp.Before(scans[j].Timestamp)
	})

	m, err := e.buildMatcher(ctx)
	if err != nil {
		return Summary{}, err
	}

	log := e.log.With(zap.String("batch_id", sum.BatchID), zap.String("site", site))
	log.Info("ingesting batch",
		zap.Time("file_date", fileDate),
		zap.Int("scans", len(scans)),
		zap.Int("warnings", len(warnings)))

	for _, scan := range scans {
		outcome, err := e.processScan(ctx, m, scan, site, sum.BatchID, &sum)
		if err != nil {
			return Summary{}, err
		}
		if err := e.appendAudit(ctx, scan, site, sum.BatchID, outcome); err != nil {
			return Summary{}, err
		}
	}

	log.Info("batch ingested",
		zap.Int("matched", sum.Matched),
		zap.Int("unmatched", sum.Unmatched),
		zap.Int("flagged", sum.Flagged),
		zap.Int("duplicates", sum.Duplicates))
	return sum, nil
}

type scanOutcome struct {
	result     string
	employeeID *uint
}

func (e *Engine) processScan(ctx context.Context, m *matcher.Matcher, scan Scan, site, batchID string, sum *Summary) (scanOutcome, error) {
	res := m.Resolve(scan.RawName, scan.Timestamp)
	if !res.Matched() {
		sum.Unmatched++
		reason := res.Reason
		if err := e.recordUnresolved(ctx, scan, site, batchID, reason, res.Candidates); err != nil {
			return scanOutcome{}, err
		}
		result := models.ScanUnmatched
		if reason == matcher.ReasonAmbiguous {
			result = models.ScanAmbiguous
		}
		return scanOutcome{result: result}, nil
	}

	emp := res.Employee
	if res.Assignment == nil {
		// Matched a person but there is no active assignment to classify
		// against; surface for review rather than guessing a window.
		sum.Unmatched++
		if err := e.recordUnresolved(ctx, scan, site, batchID, "no_active_assignment", []uint{emp.ID}); err != nil {
			return scanOutcome{}, err
		}
		return scanOutcome{result: models.ScanOutOfWindow, employeeID: &emp.ID}, nil
	}

	cls, err := shifts.Classify(res.Assignment, scan.Timestamp)
	if err != nil {
		sum.Unmatched++
		if err := e.recordUnresolved(ctx, scan, site, batchID, "out_of_window", []uint{emp.ID}); err != nil {
			return scanOutcome{}, err
		}
		return scanOutcome{result: models.ScanOutOfWindow, employeeID: &emp.ID}, nil
	}

	slot := cls.Slot
	if slot == shifts.SlotAuto {
		slot, err = e.resolveAutoSlot(ctx, emp.ID, cls.ShiftDate, scan.Mode)
		if err != nil {
			return scanOutcome{}, err
		}
	}

	rec, outcome, err := e.store.Merge(ctx, res.Assignment, emp.ID, cls.ShiftDate, slot, scan.Timestamp, site)
	if err != nil {
		return scanOutcome{}, err
	}

	sum.Matched++
	if outcome == MergeDuplicate {
		sum.Duplicates++
	}
	if rec.NeedsReview() {
		sum.Flagged++
	}
	return scanOutcome{result: models.ScanMatched, employeeID: &emp.ID}, nil
}

// resolveAutoSlot picks the slot for a utility24h punch: an explicit device
// mode wins, otherwise the first punch of the shift-date is the time-in.
func (e *Engine) resolveAutoSlot(ctx context.Context, employeeID uint, shiftDate time.Time, mode string) (shifts.Slot, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "0", "i", "in", "checkin", "check-in":
		return shifts.SlotIn, nil
	case "1", "o", "out", "checkout", "check-out":
		return shifts.SlotOut, nil
	}
	rec, err := e.store.Record(ctx, employeeID, shiftDate)
	if err != nil {
		return shifts.SlotIn, err
	}
	if rec == nil || rec.TimeIn == nil {
		return shifts.SlotIn, nil
	}
	return shifts.SlotOut, nil
}

// buildMatcher loads the active workforce. Employees carrying more than one
// active assignment are a transient roster inconsistency; they stay in the
// index without an assignment so their scans surface for review instead of
// being classified against an arbitrary window.
func (e *Engine) buildMatcher(ctx context.Context) (*matcher.Matcher, error) {
	var emps []models.Employee
	if err := e.db.WithContext(ctx).Where("active = ?", true).Find(&emps).Error; err != nil {
		return nil, fmt.Errorf("loading employees: %w", err)
	}
	var asgs []models.ShiftAssignment
	if err := e.db.WithContext(ctx).Where("is_active = ?", true).Find(&asgs).Error; err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	byEmployee := make(map[uint][]models.ShiftAssignment)
	for _, a := range asgs {
		byEmployee[a.EmployeeID] = append(byEmployee[a.EmployeeID], a)
	}

	entries := make([]matcher.Entry, 0, len(emps))
	for _, emp := range emps {
		entry := matcher.Entry{Employee: emp}
		switch own := byEmployee[emp.ID]; len(own) {
		case 1:
			a := own[0]
			entry.Assignment = &a
		default:
			if len(own) > 1 {
				e.log.Warn("employee has multiple active assignments",
					zap.Uint("employee_id", emp.ID),
					zap.Int("count", len(own)))
			}
		}
		entries = append(entries, entry)
	}
	return matcher.New(entries, e.matcherCfg), nil
}

func (e *Engine) appendAudit(ctx context.Context, scan Scan, site, batchID string, outcome scanOutcome) error {
	row := models.ScanLog{
		BatchID:    batchID,
		DeviceID:   scan.DeviceID,
		DeviceUser: scan.DeviceUser,
		RawName:    scan.RawName,
		Mode:       scan.Mode,
		Site:       site,
		ScannedAt:  scan.Timestamp,
		Outcome:    outcome.result,
		EmployeeID: outcome.employeeID,
	}
	if err := e.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("appending audit trail: %w", err)
	}
	return nil
}

// recordUnresolved parks a scan in the verification queue. Keyed lookup
// keeps file replays from piling up duplicate review items.
func (e *Engine) recordUnresolved(ctx context.Context, scan Scan, site, batchID, reason string, candidates []uint) error {
	ids := make([]string, len(candidates))
	for i, id := range candidates {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	row := models.UnresolvedScan{
		BatchID:    batchID,
		RawName:    scan.RawName,
		ScannedAt:  scan.Timestamp,
		Site:       site,
		Reason:     reason,
		Candidates: strings.Join(ids, ","),
	}
	err := e.db.WithContext(ctx).
		Where("raw_name = ? AND scanned_at = ? AND reason = ?", row.RawName, row.ScannedAt, row.Reason).
		FirstOrCreate(&row).Error
	if err != nil {
		return fmt.Errorf("recording unresolved scan: %w", err)
	}
	return nil
}

// CloseOutAbsences creates ncns records for every active assignment whose
// work days include the given (fully elapsed) shift-date and for which no
// punches arrived. Safe to re-run: existing records are left untouched.
func (e *Engine) CloseOutAbsences(ctx context.Context, shiftDate time.Time, now time.Time) (int, error) {
	var asgs []models.ShiftAssignment
	err := e.db.WithContext(ctx).
		Where("is_active = ? AND effective_date <= ?", true, shiftDate).
		Where("(end_date IS NULL OR end_date >= ?)", shiftDate).
		Find(&asgs).Error
	if err != nil {
		return 0, fmt.Errorf("loading assignments: %w", err)
	}

	created := 0
	for _, a := range asgs {
		if !a.WorksOn(shiftDate.Weekday()) {
			continue
		}
		if a.ScheduledOutOn(shiftDate).After(now) {
			continue // shift-date not fully elapsed yet
		}
		rec := models.AttendanceRecord{
			EmployeeID: a.EmployeeID,
			ShiftDate:  shiftDate,
			Status:     models.StatusNCNS,
		}
		res := e.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "shift_date"}},
			DoNothing: true,
		}).Create(&rec)
		if res.Error != nil {
			return created, fmt.Errorf("creating ncns record: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			created++
		}
	}
	if created > 0 {
		e.log.Info("absence close-out",
			zap.Time("shift_date", shiftDate),
			zap.Int("ncns_records", created))
	}
	return created, nil
}

// StatusCounts aggregates record counts by status over a shift-date range.
func (e *Engine) StatusCounts(ctx context.Context, from, to time.Time) ([]models.StatusCount, error) {
	var counts []models.StatusCount
	err := e.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Select("status, count(*) as count").
		Where("shift_date >= ? AND shift_date <= ?", from, to).
		Group("status").
		Order("status").
		Find(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("aggregating status counts: %w", err)
	}
	return counts, nil
}
