package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayStart(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	late := time.Date(2024, time.January, 10, 23, 45, 12, 999, loc)
	got := DayStart(late)

	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, loc), got)
	assert.Equal(t, loc, got.Location(), "day start stays in the input's location")
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(day(2024, time.January, 7), day(2024, time.January, 7)))
	assert.Equal(t, 3, DaysBetween(day(2024, time.January, 7), day(2024, time.January, 10)))
	assert.Equal(t, -3, DaysBetween(day(2024, time.January, 10), day(2024, time.January, 7)))

	// Wall-clock time within the day is irrelevant.
	a := day(2024, time.January, 7).Add(23 * time.Hour)
	b := day(2024, time.January, 8).Add(1 * time.Minute)
	assert.Equal(t, 1, DaysBetween(a, b))
}

func TestCalcPlanEnd(t *testing.T) {
	sunday := day(2024, time.January, 7)

	// 28 days from Sunday raw-ends on a Saturday; rounds forward to Sunday.
	assert.Equal(t, day(2024, time.February, 4), CalcPlanEnd(sunday, 28, time.Sunday))

	// 22 days raw-ends on a Sunday already; no rounding.
	assert.Equal(t, day(2024, time.January, 28), CalcPlanEnd(sunday, 22, time.Sunday))

	// One-day plan starting on the anchor ends the same day.
	assert.Equal(t, sunday, CalcPlanEnd(sunday, 1, time.Sunday))

	// Monday anchor.
	assert.Equal(t, day(2024, time.January, 15), CalcPlanEnd(day(2024, time.January, 8), 7, time.Monday))
}

func TestProgramDayOn(t *testing.T) {
	start := day(2024, time.January, 7)

	assert.Equal(t, 1, ProgramDayOn(start, 1, start))
	assert.Equal(t, 4, ProgramDayOn(start, 1, day(2024, time.January, 10)))
	assert.Equal(t, 12, ProgramDayOn(start, 9, day(2024, time.January, 10)))
	// Zero start day falls back to 1.
	assert.Equal(t, 4, ProgramDayOn(start, 0, day(2024, time.January, 10)))
}

func TestMostRecentWeekday(t *testing.T) {
	wednesday := day(2024, time.January, 10)

	assert.Equal(t, day(2024, time.January, 7), MostRecentWeekday(wednesday, time.Sunday))
	assert.Equal(t, day(2024, time.January, 8), MostRecentWeekday(wednesday, time.Monday))
	// Same weekday returns the day itself.
	assert.Equal(t, wednesday, MostRecentWeekday(wednesday, time.Wednesday))
}

func TestPlanQueueSlots(t *testing.T) {
	var q PlanQueue
	assert.False(t, q.HasCurrentPlan())
	assert.False(t, q.HasNextPlan())
	assert.Equal(t, DefaultStartDay, q.EffectiveStartDay())
}
