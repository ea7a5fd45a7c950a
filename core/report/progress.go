package report

import (
	"fmt"
	"time"

	"github.com/trezcool/shule/core/pace"
)

// ProgressData feeds the periodic progress email sent to a student's
// parent.
type ProgressData struct {
	Username string
	FullName string
	Date     string

	NDone      int
	NDue       int
	NScheduled int

	// DueStatement is a full sentence, e.g. "There are 3 goals whose
	// due dates have passed."
	DueStatement string

	LastDoneStatement string

	Teacher      string
	TeacherEmail string
}

// BuildProgress assembles the parent progress email data from a pace
// summary.
func BuildProgress(p *pace.Pace, sum pace.Summary, now time.Time) ProgressData {
	data := ProgressData{
		Username:          p.StudentUser.Username,
		FullName:          p.Student.FullName(),
		Date:              now.Format("January 2, 2006"),
		NDone:             sum.NDone,
		NDue:              sum.NDue,
		NScheduled:        sum.NScheduled,
		DueStatement:      dueStatement(sum.NDue),
		LastDoneStatement: lastDoneStatement(p, sum, now),
		Teacher:           p.Teacher.Name,
		TeacherEmail:      p.Teacher.Email,
	}
	return data
}

func dueStatement(n int) string {
	if n == 1 {
		return "There is 1 goal whose due date has passed."
	}
	return fmt.Sprintf("There are %d goals whose due dates have passed.", n)
}

func lastDoneStatement(p *pace.Pace, sum pace.Summary, now time.Time) string {
	if sum.LastDoneIdx < 0 {
		return "Your student has not yet completed any goals."
	}
	g := &p.Goals[sum.LastDoneIdx]
	done := g.Done.Time

	var timing string
	if g.Due.Valid {
		timing = timingPhrase(daysBetween(done, g.Due.Time))
	} else {
		timing = "unscheduled"
	}
	return fmt.Sprintf("Your student last completed a goal %s, on %s (%s).",
		whenPhrase(daysBetween(now, done)), done.Format("January 2"), timing)
}

// daysBetween counts calendar days from a to b, positive when b is
// later.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// whenPhrase renders "today", "yesterday", "tomorrow", "N days ago" or
// "in N days". The future cases cover backdated or corrected entries.
func whenPhrase(days int) string {
	switch {
	case days > 1:
		return fmt.Sprintf("in %d days", days)
	case days == 1:
		return "tomorrow"
	case days == 0:
		return "today"
	case days == -1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", -days)
	}
}

// timingPhrase renders how a completion sat against its due date, from
// the signed day count done -> due.
func timingPhrase(days int) string {
	switch {
	case days > 1:
		return fmt.Sprintf("%d days early", days)
	case days == 1:
		return "one day early"
	case days == 0:
		return "on time"
	case days == -1:
		return "one day late"
	default:
		return fmt.Sprintf("%d days late", -days)
	}
}
