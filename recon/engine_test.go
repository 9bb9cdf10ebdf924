package recon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"timeclock/database"
	"timeclock/matcher"
	"timeclock/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	db := newTestDB(t)
	return NewEngine(db, zap.NewNop(), matcher.DefaultConfig()), db
}

func seedEmployee(t *testing.T, db *gorm.DB, given, surname string, typ models.ShiftType, in, out string) models.Employee {
	t.Helper()
	emp := models.Employee{
		FullName:  given + " " + surname,
		GivenName: given,
		Surname:   surname,
		Active:    true,
	}
	require.NoError(t, db.Create(&emp).Error)
	asg := models.ShiftAssignment{
		EmployeeID:    emp.ID,
		ShiftType:     typ,
		ScheduledIn:   in,
		ScheduledOut:  out,
		WorkDays:      "Mon,Tue,Wed,Thu,Fri,Sat,Sun",
		GraceMinutes:  10,
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&asg).Error)
	return emp
}

func fetchRecord(t *testing.T, db *gorm.DB, employeeID uint, shiftDate time.Time) models.AttendanceRecord {
	t.Helper()
	var rec models.AttendanceRecord
	require.NoError(t, db.Where("employee_id = ? AND shift_date = ?", employeeID, shiftDate).First(&rec).Error)
	return rec
}

func scanAt(name string, ts time.Time) Scan {
	return Scan{DeviceID: "1", RawName: name, Timestamp: ts}
}

var (
	mar4 = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	mar5 = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	mar6 = time.Date(2024, time.March, 6, 0, 0, 0, 0, time.UTC)
)

func TestIngestRequiresFileDate(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Ingest(context.Background(), nil, time.Time{}, "", nil)
	assert.ErrorIs(t, err, ErrMissingFileDate)
}

// The documented graveyard scenario: upload 1 carries a 09:00:17 punch
// (time-out for the prior shift-date) and a 22:28:55 punch (time-in for the
// current one); the next morning's upload completes the record.
func TestGraveyardScenarioAcrossUploads(t *testing.T) {
	engine, db := newTestEngine(t)
	emp := seedEmployee(t, db, "Rey", "Santos", models.ShiftGraveyard, "00:00", "09:00")
	ctx := context.Background()

	sum, err := engine.Ingest(ctx, []Scan{
		scanAt("SANTOS", time.Date(2024, time.March, 5, 9, 0, 17, 0, time.UTC)),
		scanAt("SANTOS", time.Date(2024, time.March, 5, 22, 28, 55, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Matched)
	assert.Equal(t, 0, sum.Unmatched)

	prior := fetchRecord(t, db, emp.ID, mar4)
	assert.Nil(t, prior.TimeIn)
	require.NotNil(t, prior.TimeOut)
	assert.True(t, prior.TimeOut.Equal(time.Date(2024, time.March, 5, 9, 0, 17, 0, time.UTC)))
	assert.Equal(t, models.StatusFailedBioIn, prior.Status)

	current := fetchRecord(t, db, emp.ID, mar5)
	require.NotNil(t, current.TimeIn)
	assert.True(t, current.TimeIn.Equal(time.Date(2024, time.March, 5, 22, 28, 55, 0, time.UTC)))
	assert.Nil(t, current.TimeOut)
	assert.Equal(t, models.StatusFailedBioOut, current.Status)

	_, err = engine.Ingest(ctx, []Scan{
		scanAt("SANTOS", time.Date(2024, time.March, 6, 9, 30, 0, 0, time.UTC)),
	}, mar6, "hq", nil)
	require.NoError(t, err)

	current = fetchRecord(t, db, emp.ID, mar5)
	require.NotNil(t, current.TimeOut)
	assert.True(t, current.TimeOut.Equal(time.Date(2024, time.March, 6, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, models.StatusOnTime, current.Status)
}

func TestIngestIdempotent(t *testing.T) {
	engine, db := newTestEngine(t)
	emp := seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	scans := []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)),
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 16, 5, 0, 0, time.UTC)),
	}
	_, err := engine.Ingest(ctx, scans, mar5, "hq", nil)
	require.NoError(t, err)
	first := fetchRecord(t, db, emp.ID, mar5)

	_, err = engine.Ingest(ctx, scans, mar5, "hq", nil)
	require.NoError(t, err)
	second := fetchRecord(t, db, emp.ID, mar5)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.TimeIn.Equal(*second.TimeIn))
	assert.True(t, first.TimeOut.Equal(*second.TimeOut))
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Notes, second.Notes)

	var count int64
	db.Model(&models.AttendanceRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestCompletionInEitherOrder(t *testing.T) {
	engine, db := newTestEngine(t)
	emp := seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	// Time-out arrives in the first upload, time-in in the second.
	_, err := engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 16, 5, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)

	rec := fetchRecord(t, db, emp.ID, mar5)
	assert.Equal(t, models.StatusFailedBioIn, rec.Status)

	_, err = engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)

	rec = fetchRecord(t, db, emp.ID, mar5)
	require.NotNil(t, rec.TimeIn)
	require.NotNil(t, rec.TimeOut)
	assert.Equal(t, models.StatusOnTime, rec.Status)
}

func TestDuplicateScanKeepsEarliestAndNotes(t *testing.T) {
	engine, db := newTestEngine(t)
	emp := seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	_, err := engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)

	sum, err := engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 58, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Duplicates)

	rec := fetchRecord(t, db, emp.ID, mar5)
	assert.True(t, rec.TimeIn.Equal(time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)))
	assert.Contains(t, rec.Notes, "duplicate")
	notes := rec.Notes

	// Replaying the duplicate does not grow the notes.
	_, err = engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 58, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)
	rec = fetchRecord(t, db, emp.ID, mar5)
	assert.Equal(t, notes, rec.Notes)
}

func TestCrossSiteFlagged(t *testing.T) {
	engine, db := newTestEngine(t)
	emp := seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	_, err := engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)),
	}, mar5, "siteA", nil)
	require.NoError(t, err)
	_, err = engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 16, 5, 0, 0, time.UTC)),
	}, mar5, "siteB", nil)
	require.NoError(t, err)

	rec := fetchRecord(t, db, emp.ID, mar5)
	assert.True(t, rec.CrossSite)
	// Cross-site flags review without altering the status.
	assert.Equal(t, models.StatusOnTime, rec.Status)
	assert.True(t, rec.NeedsReview())
}

func TestUnmatchedScansGoToReview(t *testing.T) {
	engine, db := newTestEngine(t)
	seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	sum, err := engine.Ingest(ctx, []Scan{
		scanAt("NOBODY KNOWN", time.Date(2024, time.March, 5, 7, 0, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unmatched)

	var unresolved []models.UnresolvedScan
	require.NoError(t, db.Find(&unresolved).Error)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "no_match", unresolved[0].Reason)

	// The audit trail keeps the raw scan even though nothing matched.
	var logs []models.ScanLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "NOBODY KNOWN", logs[0].RawName)
	assert.Equal(t, models.ScanUnmatched, logs[0].Outcome)

	// Replaying does not pile up review items, but the audit trail still
	// records every received scan.
	_, err = engine.Ingest(ctx, []Scan{
		scanAt("NOBODY KNOWN", time.Date(2024, time.March, 5, 7, 0, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)
	require.NoError(t, db.Find(&unresolved).Error)
	assert.Len(t, unresolved, 1)
	require.NoError(t, db.Find(&logs).Error)
	assert.Len(t, logs, 2)
}

func TestOutOfWindowPunchFlagged(t *testing.T) {
	engine, db := newTestEngine(t)
	seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	sum, err := engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 1, 0, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Unmatched)

	var unresolved models.UnresolvedScan
	require.NoError(t, db.First(&unresolved).Error)
	assert.Equal(t, "out_of_window", unresolved.Reason)
}

func TestUtilitySlotFromRecordState(t *testing.T) {
	engine, db := newTestEngine(t)
	emp := seedEmployee(t, db, "Rosa", "Dimaano", models.ShiftUtility, "00:00", "23:59")
	ctx := context.Background()

	_, err := engine.Ingest(ctx, []Scan{
		scanAt("DIMAANO", time.Date(2024, time.March, 5, 8, 2, 0, 0, time.UTC)),
		scanAt("DIMAANO", time.Date(2024, time.March, 5, 17, 40, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)

	rec := fetchRecord(t, db, emp.ID, mar5)
	require.NotNil(t, rec.TimeIn)
	require.NotNil(t, rec.TimeOut)
	assert.True(t, rec.TimeIn.Equal(time.Date(2024, time.March, 5, 8, 2, 0, 0, time.UTC)))
	assert.True(t, rec.TimeOut.Equal(time.Date(2024, time.March, 5, 17, 40, 0, 0, time.UTC)))
	assert.Equal(t, models.StatusOnTime, rec.Status)
}

func TestCloseOutAbsences(t *testing.T) {
	engine, db := newTestEngine(t)
	absent := seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	present := seedEmployee(t, db, "Rey", "Santos", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	_, err := engine.Ingest(ctx, []Scan{
		scanAt("SANTOS", time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)

	now := time.Date(2024, time.March, 6, 8, 0, 0, 0, time.UTC)
	created, err := engine.CloseOutAbsences(ctx, mar5, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	rec := fetchRecord(t, db, absent.ID, mar5)
	assert.Equal(t, models.StatusNCNS, rec.Status)

	// The present employee's record is untouched.
	rec = fetchRecord(t, db, present.ID, mar5)
	assert.Equal(t, models.StatusFailedBioOut, rec.Status)

	// Re-running is a no-op.
	created, err = engine.CloseOutAbsences(ctx, mar5, now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestCloseOutSkipsUnelapsedShift(t *testing.T) {
	engine, _ := newTestEngine(t)
	db := engine.db
	seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")

	// Mid-shift: nothing to close out yet.
	now := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	created, err := engine.CloseOutAbsences(context.Background(), mar5, now)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestStatusCounts(t *testing.T) {
	engine, db := newTestEngine(t)
	seedEmployee(t, db, "Juan", "Cabarliza", models.ShiftMorning, "07:00", "16:00")
	ctx := context.Background()

	_, err := engine.Ingest(ctx, []Scan{
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 6, 55, 0, 0, time.UTC)),
		scanAt("CABARLIZA", time.Date(2024, time.March, 5, 16, 5, 0, 0, time.UTC)),
		scanAt("CABARLIZA", time.Date(2024, time.March, 6, 7, 30, 0, 0, time.UTC)),
	}, mar5, "hq", nil)
	require.NoError(t, err)

	counts, err := engine.StatusCounts(ctx, mar4, mar6)
	require.NoError(t, err)

	byStatus := map[models.Status]int64{}
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}
	assert.Equal(t, int64(1), byStatus[models.StatusOnTime])
	assert.Equal(t, int64(1), byStatus[models.StatusFailedBioOut])

	// Restricting the range drops the open Mar 6 record.
	counts, err = engine.StatusCounts(ctx, mar4, mar5)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, models.StatusOnTime, counts[0].Status)
}
