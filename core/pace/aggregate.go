package pace

import (
	"fmt"
	"math"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Problem attributes a skipped value to its goal or field during
// aggregation. Problems never abort the rest of the summary.
type Problem struct {
	GoalID int    `json:"goal_id,omitempty"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error"`
}

// TermSummary is one term's grade figures. Percentages are rounded
// integers; absent values mean the term has no data for them yet.
type TermSummary struct {
	Term Term `json:"term"`

	// Due counts bucketed goals due on or before the reference date.
	Due  int `json:"due"`
	Done int `json:"done"`

	// TestAverage is absent when no goal in the bucket is done.
	TestAverage null.Int `json:"test_average"`
	// ExamPercent is absent when no exam mark is recorded.
	ExamPercent null.Int `json:"exam_percent"`
	Notices     int      `json:"notices"`
	// SemesterGrade = exam*frac + tests*(1-frac) - notices, absent
	// without both an exam mark and a test average.
	SemesterGrade null.Int `json:"semester_grade"`
	Letter        string   `json:"letter,omitempty"`

	// Provisional marks the figures "(I)": an incomplete-flagged goal in
	// the bucket is still undone.
	Provisional bool `json:"provisional"`

	// LeadLag is the signed integer percent the student is ahead of (or
	// behind) schedule, "+" prefixed when non-negative.
	LeadLag string `json:"lead_lag,omitempty"`
	Lagging bool   `json:"lagging"`
}

// Mark renders a rounded percent with the provisional "(I)" marker.
func (ts TermSummary) Mark(pct int) string {
	if ts.Provisional {
		return fmt.Sprintf("%d (I)", pct)
	}
	return fmt.Sprintf("%d", pct)
}

// Summary is the aggregate of one student's whole pace.
type Summary struct {
	Fall   TermSummary `json:"fall"`
	Spring TermSummary `json:"spring"`

	NScheduled int `json:"n_scheduled"` // goals with a due date
	NDue       int `json:"n_due"`       // due on or before the reference date
	NDone      int `json:"n_done"`

	WeightScheduled float64 `json:"weight_scheduled"`
	WeightDue       float64 `json:"weight_due"`
	WeightDone      float64 `json:"weight_done"`

	PreviouslyIncomplete bool `json:"previously_incomplete"`
	HasReview            bool `json:"has_review"`
	HasIncomplete        bool `json:"has_incomplete"`

	// LastDoneIdx indexes the most recently completed goal in the
	// pace's sorted goal order, -1 when nothing is done.
	LastDoneIdx int `json:"last_done_idx"`

	// Problems collects unparsable scores and unclassifiable goals that
	// were skipped, each attributed to its goal or field.
	Problems []Problem `json:"problems,omitempty"`
}

type termAccum struct {
	due         int
	done        int
	scoreSum    float64
	scoreCount  int
	dueWeight   float64
	doneWeight  float64
	provisional bool
}

// Summarize computes the grade summary for one pace snapshot. Per-goal
// score failures and out-of-range dates are collected in
// Summary.Problems and skipped; an unparsable exam mark suppresses only
// that term's semester grade. The reference date now decides overdue
// status.
func Summarize(p *Pace, cal Calendar, now time.Time, scale core.SchoolConfig) Summary {
	sum := Summary{
		Fall:        TermSummary{Term: Fall},
		Spring:      TermSummary{Term: Spring},
		LastDoneIdx: -1,
	}
	accums := map[Term]*termAccum{Fall: {}, Spring: {}}

	for i := range p.Goals {
		g := &p.Goals[i]

		if g.Due.Valid {
			sum.NScheduled++
			sum.WeightScheduled += g.Weight
			if !g.Due.Time.After(now) {
				sum.NDue++
				sum.WeightDue += g.Weight
			}
		}
		if g.Done.Valid {
			sum.NDone++
			sum.WeightDone += g.Weight
			sum.LastDoneIdx = i
		} else if g.Incomplete {
			sum.PreviouslyIncomplete = true
		}
		if g.Review {
			sum.HasReview = true
		}
		if g.Incomplete {
			sum.HasIncomplete = true
		}

		// bucket by due date, else done date
		var bucketDate time.Time
		switch {
		case g.Due.Valid:
			bucketDate = g.Due.Time
		case g.Done.Valid:
			bucketDate = g.Done.Time
		default:
			// counts only toward whole-year totals
			continue
		}
		term, err := cal.TermOf(bucketDate)
		if err != nil {
			sum.Problems = append(sum.Problems, Problem{GoalID: g.ID, Error: err.Error()})
			continue
		}
		acc := accums[term]

		if g.Due.Valid && !g.Due.Time.After(now) {
			acc.due++
			acc.dueWeight += g.Weight
		}
		if g.Done.Valid {
			acc.done++
			acc.doneWeight += g.Weight

			score, ok, err := ParseOptionalScore(g.Score.String)
			switch {
			case err != nil:
				sum.Problems = append(sum.Problems, Problem{GoalID: g.ID, Error: err.Error()})
			case !ok:
				sum.Problems = append(sum.Problems, Problem{GoalID: g.ID, Error: "goal is done but has no score"})
			default:
				acc.scoreSum += score
				acc.scoreCount++
			}
		} else if g.Incomplete {
			acc.provisional = true
		}
	}

	sum.Fall = finishTerm(sum.Fall, accums[Fall], p, Fall, &sum, scale)
	sum.Spring = finishTerm(sum.Spring, accums[Spring], p, Spring, &sum, scale)
	return sum
}

func finishTerm(ts TermSummary, acc *termAccum, p *Pace, term Term, sum *Summary, scale core.SchoolConfig) TermSummary {
	ts.Due = acc.due
	ts.Done = acc.done
	ts.Provisional = acc.provisional

	if p.TotalWeight > 0 {
		lead := roundPct((acc.doneWeight - acc.dueWeight) / p.TotalWeight)
		if lead >= 0 {
			ts.LeadLag = fmt.Sprintf("+%d", lead)
		} else {
			ts.LeadLag = fmt.Sprintf("%d", lead)
			ts.Lagging = true
		}
	}

	var (
		examRaw  null.String
		notices  int
		examFrac float64
	)
	switch term {
	case Fall:
		examRaw = p.Student.FallExam
		notices = p.Student.FallNotices
		examFrac = p.Student.ExamFraction(false)
	case Spring:
		examRaw = p.Student.SpringExam
		notices = p.Student.SpringNotices
		examFrac = p.Student.ExamFraction(true)
	}
	ts.Notices = notices

	// no completed goals: the term is incomplete for grading purposes
	if acc.scoreCount == 0 {
		return ts
	}
	tests := acc.scoreSum / float64(acc.scoreCount)
	ts.TestAverage.SetValid(roundPct(tests))

	if !examRaw.Valid {
		// valid absent-state: in-progress semester
		return ts
	}
	exam, _, err := ParseOptionalScore(examRaw.String)
	if err != nil {
		field := "fall_exam"
		if term == Spring {
			field = "spring_exam"
		}
		sum.Problems = append(sum.Problems, Problem{Field: field, Error: err.Error()})
		return ts
	}
	ts.ExamPercent.SetValid(roundPct(exam))

	grade := exam*examFrac + tests*(1-examFrac) - 0.01*float64(notices)
	pct := roundPct(grade)
	ts.SemesterGrade.SetValid(pct)
	ts.Letter = scale.LetterGrade(pct)
	return ts
}

// roundPct converts a fraction-of-one to the nearest integer percent.
func roundPct(frac float64) int {
	return int(math.Round(100 * frac))
}
