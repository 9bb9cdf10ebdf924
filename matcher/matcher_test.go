package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeclock/models"
)

func employee(id uint, given, surname string) Entry {
	return Entry{Employee: models.Employee{
		ID:        id,
		FullName:  given + " " + surname,
		GivenName: given,
		Surname:   surname,
		Active:    true,
	}}
}

func withShift(e Entry, typ models.ShiftType, in, out string) Entry {
	e.Assignment = &models.ShiftAssignment{
		EmployeeID:   e.Employee.ID,
		ShiftType:    typ,
		ScheduledIn:  in,
		ScheduledOut: out,
		WorkDays:     "Mon,Tue,Wed,Thu,Fri",
		IsActive:     true,
	}
	return e
}

var noon = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

func TestUniqueSurnameMatch(t *testing.T) {
	m := New([]Entry{
		employee(1, "Juan", "Cabarliza"),
		employee(2, "Maria", "Santos"),
	}, DefaultConfig())

	res := m.Resolve("JUAN CABARLIZA", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(1), res.Employee.ID)

	// Trailing token alone is enough when the surname is unique.
	res = m.Resolve("CABARLIZA", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(1), res.Employee.ID)
}

func TestSurnameInitialMatch(t *testing.T) {
	m := New([]Entry{
		employee(1, "Ana", "Cabarliza"),
		employee(2, "Juan", "Cabarliza"),
	}, DefaultConfig())

	res := m.Resolve("Cabarliza A", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(1), res.Employee.ID)
}

func TestTwoLetterBeatsInitial(t *testing.T) {
	// Both candidates share the initial; only the two-letter pattern can
	// split them.
	m := New([]Entry{
		employee(1, "Jessa", "Robinios"),
		employee(2, "Jomar", "Robinios"),
	}, DefaultConfig())

	res := m.Resolve("Robinios Je", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(1), res.Employee.ID)

	res = m.Resolve("Robinios Jo", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(2), res.Employee.ID)
}

func TestTwoLetterPrecedenceConfigurable(t *testing.T) {
	// "Garcia Lu" reads two ways: unique surname "Lu" (trailing token) or
	// two letters of "Luis Garcia".
	entries := []Entry{
		employee(1, "Maria", "Lu"),
		employee(2, "Luis", "Garcia"),
	}

	res := New(entries, Config{PreferTwoLetter: true}).Resolve("Garcia Lu", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(2), res.Employee.ID)

	res = New(entries, Config{PreferTwoLetter: false}).Resolve("Garcia Lu", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(1), res.Employee.ID)
}

func TestCaseAndPunctuationInsensitive(t *testing.T) {
	m := New([]Entry{employee(1, "Jessa", "Robinios")}, DefaultConfig())

	for _, raw := range []string{"ROBINIOS", "robinios", "Robinios, Je", "ROBINIOS JE."} {
		res := m.Resolve(raw, noon)
		require.True(t, res.Matched(), "raw name %q", raw)
		assert.Equal(t, uint(1), res.Employee.ID)
	}
}

func TestTimingTieBreak(t *testing.T) {
	// Two employees the string patterns cannot split; only one is on shift
	// at noon.
	day := withShift(employee(1, "Jess", "Robinios"), models.ShiftMorning, "07:00", "16:00")
	night := withShift(employee(2, "Jess", "Robinios"), models.ShiftNight, "22:00", "07:00")
	m := New([]Entry{day, night}, DefaultConfig())

	res := m.Resolve("Robinios Je", noon)
	require.True(t, res.Matched())
	assert.Equal(t, uint(1), res.Employee.ID)

	// At 22:30 only the night worker's window contains the punch.
	res = m.Resolve("Robinios Je", time.Date(2024, time.March, 5, 22, 30, 0, 0, time.UTC))
	require.True(t, res.Matched())
	assert.Equal(t, uint(2), res.Employee.ID)
}

func TestAmbiguousWhenBothWindowsContain(t *testing.T) {
	a := withShift(employee(1, "Jess", "Robinios"), models.ShiftMorning, "07:00", "16:00")
	b := withShift(employee(2, "Jess", "Robinios"), models.ShiftMorning, "07:00", "16:00")
	m := New([]Entry{a, b}, DefaultConfig())

	res := m.Resolve("Robinios Je", noon)
	assert.False(t, res.Matched())
	assert.Equal(t, ReasonAmbiguous, res.Reason)
	assert.ElementsMatch(t, []uint{1, 2}, res.Candidates)
}

func TestNoMatch(t *testing.T) {
	m := New([]Entry{employee(1, "Juan", "Cabarliza")}, DefaultConfig())

	res := m.Resolve("UNKNOWN PERSON", noon)
	assert.False(t, res.Matched())
	assert.Equal(t, ReasonNoMatch, res.Reason)

	res = m.Resolve("   ", noon)
	assert.Equal(t, ReasonNoMatch, res.Reason)
}

func TestInactiveEmployeesIgnored(t *testing.T) {
	gone := employee(1, "Juan", "Cabarliza")
	gone.Employee.Active = false
	m := New([]Entry{gone}, DefaultConfig())

	res := m.Resolve("CABARLIZA", noon)
	assert.False(t, res.Matched())
}
