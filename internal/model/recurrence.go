package model

import "time"

// RecurringInterval is the period between occurrences of a recurring transaction.
type RecurringInterval string

// Recurring interval constants.
const (
	IntervalDaily   RecurringInterval = "DAILY"
	IntervalWeekly  RecurringInterval = "WEEKLY"
	IntervalMonthly RecurringInterval = "MONTHLY"
	IntervalYearly  RecurringInterval = "YEARLY"
)

// Valid reports whether i is a known interval.
func (i RecurringInterval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly, IntervalYearly:
		return true
	}
	return false
}

// RecurrenceRule describes how often a recurring transaction repeats.
// Generating the occurrences is left to the scheduler that consumes it.
type RecurrenceRule struct {
	Interval RecurringInterval
	Count    int // Number of intervals between occurrences, at least 1
}

// Next returns the occurrence that follows from.
func (r RecurrenceRule) Next(from time.Time) time.Time {
	n := r.Count
	if n < 1 {
		n = 1
	}
	switch r.Interval {
	case IntervalDaily:
		return from.AddDate(0, 0, n)
	case IntervalWeekly:
		return from.AddDate(0, 0, 7*n)
	case IntervalMonthly:
		return from.AddDate(0, n, 0)
	case IntervalYearly:
		return from.AddDate(n, 0, 0)
	}
	return from
}

// Clone returns a copy of r, or nil when r is nil.
func (r *RecurrenceRule) Clone() *RecurrenceRule {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
