package report

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// FactStatus grades arithmetic-fact fluency on a report card.
type FactStatus string

const (
	FactNotMastered FactStatus = ""
	FactMastered    FactStatus = "m"
	FactExcellent   FactStatus = "x"
)

func (fs FactStatus) Valid() bool {
	switch fs {
	case FactNotMastered, FactMastered, FactExcellent:
		return true
	}
	return false
}

func (fs FactStatus) Label() string {
	switch fs {
	case FactMastered:
		return "Mastered"
	case FactExcellent:
		return "Excellent"
	}
	return "Not Mastered"
}

// FactSet holds the four arithmetic-fact statuses.
type FactSet struct {
	Add FactStatus `json:"add"`
	Sub FactStatus `json:"sub"`
	Mul FactStatus `json:"mul"`
	Div FactStatus `json:"div"`
}

func (fs FactSet) Valid() bool {
	return fs.Add.Valid() && fs.Sub.Valid() && fs.Mul.Valid() && fs.Div.Valid()
}

// MasteryStatus grades long-term retention of one completed goal.
type MasteryStatus string

const (
	MasteryNot       MasteryStatus = ""
	Mastered         MasteryStatus = "m"
	MasteredRetained MasteryStatus = "r"
)

func (ms MasteryStatus) Valid() bool {
	switch ms {
	case MasteryNot, Mastered, MasteredRetained:
		return true
	}
	return false
}

func (ms MasteryStatus) Label() string {
	switch ms {
	case Mastered:
		return "Mastered"
	case MasteredRetained:
		return "Mastered & Retained"
	}
	return "Not Mastered"
}

// GoalMastery ties a mastery status to one goal.
type GoalMastery struct {
	GoalID int           `json:"goal_id"`
	Status MasteryStatus `json:"status"`
}

// Sidecar carries the report-card facts that the pace does not: fact
// fluency, per-goal mastery, social skills and completion blurbs.
// Every student has at most one; an absent row reads as all defaults.
// StudentID is the student's user ID.
type Sidecar struct {
	StudentID int           `json:"student_id"`
	Facts     FactSet       `json:"facts"`
	Mastery   []GoalMastery `json:"mastery"`

	// skill name -> rating, free-form per school
	FallSocial   map[string]string `json:"fall_social"`
	SpringSocial map[string]string `json:"spring_social"`

	FallComplete   string `json:"fall_complete"`
	SpringComplete string `json:"spring_complete"`
	SummerComplete string `json:"summer_complete"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// MasteryOf looks up the recorded status for a goal, defaulting to not
// mastered.
func (sc *Sidecar) MasteryOf(goalID int) MasteryStatus {
	for _, m := range sc.Mastery {
		if m.GoalID == goalID {
			return m.Status
		}
	}
	return MasteryNot
}

// UpdateSidecar defines what may be modified on a student's sidecar.
// Nil fields are left as they are.
type UpdateSidecar struct {
	Facts   *FactSet      `json:"facts"`
	Mastery []GoalMastery `json:"mastery"`

	FallSocial   map[string]string `json:"fall_social"`
	SpringSocial map[string]string `json:"spring_social"`

	FallComplete   *string `json:"fall_complete"`
	SpringComplete *string `json:"spring_complete"`
	SummerComplete *string `json:"summer_complete"`
}

func (us *UpdateSidecar) Validate() error {
	var fes []core.FieldError
	if us.Facts != nil && !us.Facts.Valid() {
		fes = append(fes, core.FieldError{Field: "facts", Error: "statuses must be one of \"\", \"m\" or \"x\""})
	}
	for _, m := range us.Mastery {
		if !m.Status.Valid() {
			fes = append(fes, core.FieldError{Field: "mastery", Error: "statuses must be one of \"\", \"m\" or \"r\""})
			break
		}
	}
	if len(fes) > 0 {
		return core.NewValidationError(errors.New("invalid sidecar"), fes...)
	}
	return nil
}

// Archive is one rendered report PDF kept for the record.
type Archive struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"` // user ID
	Term      string    `json:"term"`
	Filename  string    `json:"filename"`
	PDF       []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"` // UTC
}
