package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultStartDay is the program day a client begins on unless the trainer
// picks a mid-program entry point.
const DefaultStartDay = 1

// PlanQueue holds the current/next plan assignment slots embedded in a client
// document. At most one current and one next plan may be set at a time, and a
// next plan may only exist while a current plan exists (FIFO, depth 2).
type PlanQueue struct {
	CurrentPlanID       *primitive.ObjectID `bson:"currentPlanId,omitempty" json:"currentPlanId,omitempty"`
	CurrentPlanStart    *time.Time          `bson:"currentPlanStart,omitempty" json:"currentPlanStart,omitempty"`
	CurrentPlanEnd      *time.Time          `bson:"currentPlanEnd,omitempty" json:"currentPlanEnd,omitempty"`
	CurrentPlanStartDay int                 `bson:"currentPlanStartDay,omitempty" json:"currentPlanStartDay,omitempty"`

	NextPlanID       *primitive.ObjectID `bson:"nextPlanId,omitempty" json:"nextPlanId,omitempty"`
	NextPlanStart    *time.Time          `bson:"nextPlanStart,omitempty" json:"nextPlanStart,omitempty"`
	NextPlanEnd      *time.Time          `bson:"nextPlanEnd,omitempty" json:"nextPlanEnd,omitempty"`
	NextPlanStartDay int                 `bson:"nextPlanStartDay,omitempty" json:"nextPlanStartDay,omitempty"`
}

// HasCurrentPlan reports whether the current slot is occupied.
func (q *PlanQueue) HasCurrentPlan() bool {
	return q.CurrentPlanID != nil && *q.CurrentPlanID != primitive.NilObjectID
}

// HasNextPlan reports whether the next slot is occupied.
func (q *PlanQueue) HasNextPlan() bool {
	return q.NextPlanID != nil && *q.NextPlanID != primitive.NilObjectID
}

// EffectiveStartDay returns the current plan's start day, defaulting to 1 for
// records written before the field existed.
func (q *PlanQueue) EffectiveStartDay() int {
	if q.CurrentPlanStartDay <= 0 {
		return DefaultStartDay
	}
	return q.CurrentPlanStartDay
}

// DayStart returns midnight of t's calendar day in t's location.
// All "today" comparisons use day starts, never wall-clock time.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DayStart(b).Sub(DayStart(a)).Hours() / 24)
}

// CalcPlanEnd computes the end date of a plan: start + (durationDays - 1),
// rounded forward to the next occurrence of the anchor weekday if the raw end
// does not itself land on it. The rounding deliberately extends the effective
// plan length past the nominal duration to keep week boundaries aligned.
func CalcPlanEnd(start time.Time, durationDays int, anchor time.Weekday) time.Time {
	end := DayStart(start).AddDate(0, 0, durationDays-1)
	for end.Weekday() != anchor {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// ProgramDayOn maps a calendar date to a 1-indexed program day for a plan
// that started on planStart at the given start day.
func ProgramDayOn(planStart time.Time, startDay int, target time.Time) int {
	if startDay <= 0 {
		startDay = DefaultStartDay
	}
	return DaysBetween(planStart, target) + startDay
}

// MostRecentWeekday returns the most recent occurrence of the given weekday on
// or before t, at day start.
func MostRecentWeekday(t time.Time, day time.Weekday) time.Time {
	d := DayStart(t)
	offset := (int(d.Weekday()) - int(day) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
