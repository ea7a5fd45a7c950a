package pace

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/user"
)

// Goal is a single curriculum-chapter assignment for one student.
// StudentID is the student's user ID.
type Goal struct {
	ID        int    `json:"id"`
	StudentID int    `json:"student_id"`
	Sym       string `json:"sym"` // course symbol
	Seq       int    `json:"seq"` // chapter sequence
	// Review marks previously-covered material.
	Review bool `json:"review"`
	// Incomplete marks material left unfinished from a prior year.
	Incomplete bool `json:"incomplete"`
	// Due is unset for goals outside the assigned pace, e.g. extra
	// chapters done after the assigned ones. Undated goals are excluded
	// from lag computation and from autopacing.
	Due   null.Time   `json:"due"`
	Done  null.Time   `json:"done"`
	Tries null.Int16  `json:"tries"` // set on completion, defaults to 1
	Score null.String `json:"score"` // verbatim teacher input, set on completion

	// Weight is the goal's chapter weight relative to the whole course
	// weight. Set when the Pace is assembled; not stored.
	Weight float64 `json:"weight"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC

	level float64 // course level, set when the Pace is assembled
}

// less orders goals by due date, then done date, then course level and
// chapter sequence. Dated goals sort before undated ones.
func (g *Goal) less(o *Goal) bool {
	switch {
	case g.Due.Valid && o.Due.Valid:
		if !g.Due.Time.Equal(o.Due.Time) {
			return g.Due.Time.Before(o.Due.Time)
		}
	case g.Due.Valid:
		return true
	case o.Due.Valid:
		return false
	}

	switch {
	case g.Done.Valid && o.Done.Valid:
		if !g.Done.Time.Equal(o.Done.Time) {
			return g.Done.Time.Before(o.Done.Time)
		}
	case g.Done.Valid:
		return true
	case o.Done.Valid:
		return false
	}

	if g.level != o.level {
		return g.level < o.level
	}
	return g.Seq < o.Seq
}

// SortGoals sorts goals into pace-calendar order.
func SortGoals(goals []Goal) {
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].less(&goals[j]) })
}

// CourseInUse reports whether any goal references the course.
func CourseInUse(goals []Goal, sym string) bool {
	for i := range goals {
		if goals[i].Sym == sym {
			return true
		}
	}
	return false
}

// ChapterInUse reports whether any goal references the chapter.
func ChapterInUse(goals []Goal, sym string, seq int) bool {
	for i := range goals {
		if goals[i].Sym == sym && goals[i].Seq == seq {
			return true
		}
	}
	return false
}

// Pace is a student's entire assigned roster for one year, with weights
// resolved against the course catalog.
type Pace struct {
	Student     user.Student `json:"student"`
	StudentUser user.User    `json:"student_user"`
	Teacher     user.User    `json:"teacher"`
	Goals       []Goal       `json:"goals"`

	// TotalWeight sums the weights of the assigned (due-dated) goals.
	TotalWeight float64 `json:"total_weight"`
	// DueWeight sums the weights of goals whose due dates have passed.
	DueWeight float64 `json:"due_weight"`
	// DoneWeight sums the weights of the completed goals.
	DoneWeight float64 `json:"done_weight"`
}

// NewPace assembles a Pace from a consistent snapshot: it resolves each
// goal's weight from the catalog, sorts the goals, and accumulates the
// weight totals against now.
func NewPace(su user.User, st user.Student, t user.User, goals []Goal, catalog map[string]course.Course, now time.Time) (Pace, error) {
	for i := range goals {
		g := &goals[i]
		crs, ok := catalog[g.Sym]
		if !ok {
			return Pace{}, errors.Errorf("goal %d: unknown course symbol %q", g.ID, g.Sym)
		}
		chp, ok := crs.Chapter(g.Seq)
		if !ok {
			return Pace{}, errors.Errorf("goal %d: course %q (%s) has no chapter %d", g.ID, g.Sym, crs.Title, g.Seq)
		}
		crsWeight := crs.Weight()
		if crsWeight == 0 {
			return Pace{}, errors.Errorf("course %q (%s) has no chapter weights", g.Sym, crs.Title)
		}
		g.Weight = chp.Weight / crsWeight
		g.level = crs.Level
	}

	SortGoals(goals)

	p := Pace{
		Student:     st,
		StudentUser: su,
		Teacher:     t,
		Goals:       goals,
	}
	for i := range goals {
		g := &goals[i]
		if g.Due.Valid {
			p.TotalWeight += g.Weight
			if !g.Due.Time.After(now) {
				p.DueWeight += g.Weight
			}
		}
		if g.Done.Valid {
			p.DoneWeight += g.Weight
		}
	}
	return p, nil
}

// NewGoal contains information needed to assign a goal to a student.
type NewGoal struct {
	StudentID  int    `json:"student_id" validate:"required"`
	Sym        string `json:"sym" validate:"required"`
	Seq        int    `json:"seq" validate:"required,gt=0"`
	Review     bool   `json:"review"`
	Incomplete bool   `json:"incomplete"`
	Due        string `json:"due" validate:"omitempty,datetime=2006-01-02"`
}

func (ng *NewGoal) Validate() error {
	ng.Sym = core.CleanString(ng.Sym, true /* lower */)
	return core.Validate.Struct(ng)
}

// UpdateGoal defines what may be modified on an existing goal.
// Completing a goal requires a score; clearing the done date clears the
// score and tries as well.
type UpdateGoal struct {
	Review     *bool  `json:"review"`
	Incomplete *bool  `json:"incomplete"`
	Due        *string `json:"due" validate:"omitempty,datetime=2006-01-02"`
	Done       *string `json:"done" validate:"omitempty,datetime=2006-01-02"`
	Tries      *int16  `json:"tries" validate:"omitempty,gt=0"`
	Score      *string `json:"score" validate:"omitempty,score"`
}

func (ug *UpdateGoal) Validate() error {
	if ug.Score != nil {
		*ug.Score = core.CleanString(*ug.Score)
	}
	if err := core.Validate.Struct(ug); err != nil {
		return err
	}
	// done and score come and go together
	if ug.Done != nil && *ug.Done != "" && (ug.Score == nil || *ug.Score == "") {
		return core.NewValidationError(
			errors.New("a completed goal needs a score"),
			core.FieldError{Field: "score", Error: "required when done is set"},
		)
	}
	if ug.Score != nil && *ug.Score != "" && (ug.Done == nil || *ug.Done == "") {
		return core.NewValidationError(
			errors.New("a scored goal needs a completion date"),
			core.FieldError{Field: "done", Error: "required when score is set"},
		)
	}
	return nil
}
