package pace

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Term is an academic half-year.
type Term string

const (
	Fall   Term = "Fall"
	Spring Term = "Spring"
)

// Named divide dates kept in the calendar store.
const (
	DateEndFall   = "end-fall"
	DateEndSpring = "end-spring"
)

// ErrOutOfRange flags a date outside the configured academic year.
// Callers treat it as a configuration error, not a per-goal failure.
var ErrOutOfRange = errors.New("date outside the academic year")

// Calendar is one academic year: every day school is in session, plus the
// named term boundary dates. It is a pure value; storage supplies snapshots.
type Calendar struct {
	days      []time.Time // sorted ascending
	fallEnd   time.Time
	springEnd time.Time
}

func NewCalendar(days []time.Time, fallEnd, springEnd time.Time) Calendar {
	sorted := make([]time.Time, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return Calendar{
		days:      sorted,
		fallEnd:   fallEnd,
		springEnd: springEnd,
	}
}

func (c Calendar) Days() []time.Time    { return c.days }
func (c Calendar) FallEnd() time.Time   { return c.fallEnd }
func (c Calendar) SpringEnd() time.Time { return c.springEnd }

func (c Calendar) inRange(d time.Time) bool {
	if len(c.days) == 0 {
		return false
	}
	return !d.Before(c.days[0]) && !d.After(c.days[len(c.days)-1])
}

// TermOf classifies a date: Fall before the fall divide, Spring after.
func (c Calendar) TermOf(d time.Time) (Term, error) {
	if !c.inRange(d) {
		return "", errors.Wrapf(ErrOutOfRange, "%s", d.Format("2006-01-02"))
	}
	if d.Before(c.fallEnd) {
		return Fall, nil
	}
	return Spring, nil
}

// RemainingFrom returns the ascending in-session days from a date through
// year end. Used by the autopacer.
func (c Calendar) RemainingFrom(d time.Time) ([]time.Time, error) {
	if !c.inRange(d) {
		return nil, errors.Wrapf(ErrOutOfRange, "%s", d.Format("2006-01-02"))
	}
	i := sort.Search(len(c.days), func(i int) bool { return !c.days[i].Before(d) })
	rem := make([]time.Time, len(c.days)-i)
	copy(rem, c.days[i:])
	return rem, nil
}
