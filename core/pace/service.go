package pace

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrGoalNotFound   = errors.New("goal not found")
	ErrGoalExists     = errors.New("this chapter is already assigned to the student")
	ErrCalendarNotSet = errors.New("the academic calendar is not set")
	ErrDateNotFound   = errors.New("named date not found")
)

type (
	Repository interface {
		CreateGoal(g Goal) (Goal, error)
		GetGoalByID(id int) (Goal, error)
		// QueryGoalsByStudentID keys by the student's user ID.
		QueryGoalsByStudentID(studentID int) ([]Goal, error)
		QueryAllGoals() ([]Goal, error)
		UpdateGoal(g Goal) (Goal, error)
		DeleteGoal(id int) error
		DeleteGoalsByStudentID(studentID int) error

		ReplaceSessionDays(days []time.Time) error
		QuerySessionDays() ([]time.Time, error)
		SetNamedDate(name string, date time.Time) error
		DeleteNamedDate(name string) error
		QueryNamedDates() (map[string]time.Time, error)
	}

	Service struct {
		repo    Repository
		users   user.Repository
		courses course.Repository
		conf    *core.Config
	}
)

func NewService(repo Repository, users user.Repository, courses course.Repository, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		courses: courses,
		conf:    conf,
	}
}

// ----------------------------------------------------------------------------
// calendar

// Calendar assembles the academic calendar from storage. Both term-end
// dates must have been set.
func (svc *Service) Calendar() (Calendar, error) {
	days, err := svc.repo.QuerySessionDays()
	if err != nil {
		return Calendar{}, err
	}
	dates, err := svc.repo.QueryNamedDates()
	if err != nil {
		return Calendar{}, err
	}
	fallEnd, ok := dates[DateEndFall]
	if !ok {
		return Calendar{}, ErrCalendarNotSet
	}
	springEnd, ok := dates[DateEndSpring]
	if !ok {
		return Calendar{}, ErrCalendarNotSet
	}
	if len(days) == 0 {
		return Calendar{}, ErrCalendarNotSet
	}
	return NewCalendar(days, fallEnd, springEnd), nil
}

// SetSessionDays replaces the full set of session days.
func (svc *Service) SetSessionDays(days []time.Time) error {
	if len(days) == 0 {
		return core.NewValidationError(
			errors.New("no session days given"),
			core.FieldError{Field: "days", Error: "at least one session day is required"},
		)
	}
	for i := range days {
		days[i] = dateOnly(days[i])
	}
	return svc.repo.ReplaceSessionDays(days)
}

func (svc *Service) SessionDays() ([]time.Time, error) {
	return svc.repo.QuerySessionDays()
}

func (svc *Service) SetDate(name string, date time.Time) error {
	name = core.CleanString(name, true /* lower */)
	if name == "" {
		return core.NewValidationError(
			errors.New("no date name given"),
			core.FieldError{Field: "name", Error: "this field is required"},
		)
	}
	return svc.repo.SetNamedDate(name, dateOnly(date))
}

func (svc *Service) DeleteDate(name string) error {
	return svc.repo.DeleteNamedDate(core.CleanString(name, true /* lower */))
}

func (svc *Service) Dates() (map[string]time.Time, error) {
	return svc.repo.QueryNamedDates()
}

// ----------------------------------------------------------------------------
// goals

// AssignGoal assigns a chapter to a student. The chapter must exist in
// the catalog and must not already be assigned.
func (svc *Service) AssignGoal(ng NewGoal) (Goal, error) {
	if err := ng.Validate(); err != nil {
		return Goal{}, err
	}
	if _, err := svc.users.GetStudentByUserID(ng.StudentID); err != nil {
		return Goal{}, err
	}
	crs, err := svc.courses.GetCourseBySym(ng.Sym)
	if err != nil {
		return Goal{}, err
	}
	if _, ok := crs.Chapter(ng.Seq); !ok {
		return Goal{}, core.NewValidationError(
			course.ErrChapterNotFound,
			core.FieldError{Field: "seq", Error: fmt.Sprintf("course %q has no chapter %d", ng.Sym, ng.Seq)},
		)
	}
	existing, err := svc.repo.QueryGoalsByStudentID(ng.StudentID)
	if err != nil {
		return Goal{}, err
	}
	if ChapterInUse(existing, ng.Sym, ng.Seq) {
		return Goal{}, core.NewValidationError(ErrGoalExists, core.FieldError{Field: "seq", Error: ErrGoalExists.Error()})
	}

	now := time.Now().UTC()
	g := Goal{
		StudentID:  ng.StudentID,
		Sym:        ng.Sym,
		Seq:        ng.Seq,
		Review:     ng.Review,
		Incomplete: ng.Incomplete,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ng.Due != "" {
		due, err := time.Parse("2006-01-02", ng.Due)
		if err != nil {
			return Goal{}, err
		}
		g.Due = null.TimeFrom(due)
	}
	return svc.repo.CreateGoal(g)
}

func (svc *Service) GetGoal(id int) (Goal, error) {
	return svc.repo.GetGoalByID(id)
}

func (svc *Service) UpdateGoal(id int, ug UpdateGoal) (Goal, error) {
	if err := ug.Validate(); err != nil {
		return Goal{}, err
	}
	g, err := svc.repo.GetGoalByID(id)
	if err != nil {
		return Goal{}, err
	}
	if ug.Review != nil {
		g.Review = *ug.Review
	}
	if ug.Incomplete != nil {
		g.Incomplete = *ug.Incomplete
	}
	if ug.Due != nil {
		if err = setNullDate(&g.Due, *ug.Due); err != nil {
			return Goal{}, err
		}
	}
	if ug.Done != nil {
		if err = setNullDate(&g.Done, *ug.Done); err != nil {
			return Goal{}, err
		}
		if !g.Done.Valid {
			// clearing the completion clears its artifacts too
			g.Score = null.String{}
			g.Tries = null.Int16{}
		}
	}
	if ug.Tries != nil {
		g.Tries = null.Int16From(*ug.Tries)
	}
	if ug.Score != nil && *ug.Score != "" {
		g.Score = null.StringFrom(*ug.Score)
	}
	if g.Done.Valid && !g.Tries.Valid {
		g.Tries = null.Int16From(1)
	}
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGoal(g)
}

// CompleteGoal marks a goal done on the given date with the teacher's
// verbatim score. tries defaults to 1 when not positive.
func (svc *Service) CompleteGoal(id int, done time.Time, score string, tries int16) (Goal, error) {
	score = core.CleanString(score)
	if _, err := ParseScore(score); err != nil {
		return Goal{}, core.NewValidationError(err, core.FieldError{Field: "score", Error: err.Error()})
	}
	g, err := svc.repo.GetGoalByID(id)
	if err != nil {
		return Goal{}, err
	}
	if tries < 1 {
		tries = 1
	}
	g.Done = null.TimeFrom(dateOnly(done))
	g.Score = null.StringFrom(score)
	g.Tries = null.Int16From(tries)
	g.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGoal(g)
}

func (svc *Service) DeleteGoal(id int) error {
	return svc.repo.DeleteGoal(id)
}

func (svc *Service) DeleteStudentGoals(studentID int) error {
	return svc.repo.DeleteGoalsByStudentID(studentID)
}

// ImportGoals bulk-assigns goals from an uploaded CSV. Rows that cannot
// be resolved or are already assigned are reported as Problems and
// skipped.
func (svc *Service) ImportGoals(r io.Reader) ([]Goal, []Problem, error) {
	rows, problems, err := ParseGoalCSV(r)
	if err != nil {
		return nil, nil, err
	}

	// resolved per upload, not per row
	catalog, err := svc.catalog()
	if err != nil {
		return nil, nil, err
	}
	students := make(map[string]user.Student)
	assigned := make(map[int][]Goal)

	var created []Goal
	for _, row := range rows {
		std, ok := students[row.Username]
		if !ok {
			usr, err := svc.users.GetUserByUsername(row.Username)
			if err != nil {
				problems = append(problems, Problem{Field: row.Username, Error: err.Error()})
				continue
			}
			if std, err = svc.users.GetStudentByUserID(usr.ID); err != nil {
				problems = append(problems, Problem{Field: row.Username, Error: err.Error()})
				continue
			}
			students[row.Username] = std
			if assigned[std.UserID], err = svc.repo.QueryGoalsByStudentID(std.UserID); err != nil {
				return created, problems, err
			}
		}

		crs, ok := catalog[row.Sym]
		if !ok {
			problems = append(problems, Problem{Field: row.Username, Error: fmt.Sprintf("unknown course symbol %q", row.Sym)})
			continue
		}
		if _, ok = crs.Chapter(row.Seq); !ok {
			problems = append(problems, Problem{Field: row.Username, Error: fmt.Sprintf("course %q has no chapter %d", row.Sym, row.Seq)})
			continue
		}
		if ChapterInUse(assigned[std.UserID], row.Sym, row.Seq) {
			problems = append(problems, Problem{Field: row.Username, Error: fmt.Sprintf("%s %d is already assigned", row.Sym, row.Seq)})
			continue
		}

		now := time.Now().UTC()
		g := Goal{
			StudentID:  std.UserID,
			Sym:        row.Sym,
			Seq:        row.Seq,
			Review:     row.Review,
			Incomplete: row.Incomplete,
			Due:        row.Due,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if g, err = svc.repo.CreateGoal(g); err != nil {
			return created, problems, err
		}
		created = append(created, g)
		assigned[std.UserID] = append(assigned[std.UserID], g)
	}
	return created, problems, nil
}

// ----------------------------------------------------------------------------
// pace

// GetPace assembles the full pace snapshot for the student identified
// by their user ID.
func (svc *Service) GetPace(userID int, now time.Time) (Pace, error) {
	su, err := svc.users.GetUserByID(userID)
	if err != nil {
		return Pace{}, err
	}
	st, err := svc.users.GetStudentByUserID(userID)
	if err != nil {
		return Pace{}, err
	}
	teacher, err := svc.users.GetUserByID(st.TeacherID)
	if err != nil {
		return Pace{}, err
	}
	goals, err := svc.repo.QueryGoalsByStudentID(userID)
	if err != nil {
		return Pace{}, err
	}
	catalog, err := svc.catalog()
	if err != nil {
		return Pace{}, err
	}
	return NewPace(su, st, teacher, goals, catalog, now)
}

// Summarize computes the pace summary for one student.
func (svc *Service) Summarize(userID int, now time.Time) (Pace, Summary, error) {
	p, err := svc.GetPace(userID, now)
	if err != nil {
		return Pace{}, Summary{}, err
	}
	cal, err := svc.Calendar()
	if err != nil {
		return Pace{}, Summary{}, err
	}
	return p, Summarize(&p, cal, now, svc.conf.School), nil
}

// AutopaceStudent respaces the student's scheduled goals over the
// session days remaining from now, and persists the new due dates.
func (svc *Service) AutopaceStudent(userID int, now time.Time) (Pace, error) {
	p, err := svc.GetPace(userID, now)
	if err != nil {
		return Pace{}, err
	}
	cal, err := svc.Calendar()
	if err != nil {
		return Pace{}, err
	}
	days, err := cal.RemainingFrom(dateOnly(now))
	if err != nil {
		return Pace{}, err
	}
	if err = Autopace(&p, days); err != nil {
		return Pace{}, err
	}
	for i := range p.Goals {
		g := &p.Goals[i]
		if !g.Due.Valid {
			continue
		}
		g.UpdatedAt = time.Now().UTC()
		if *g, err = svc.repo.UpdateGoal(*g); err != nil {
			return Pace{}, err
		}
	}
	return p, nil
}

// ----------------------------------------------------------------------------
// catalog usage, consulted before course deletions

func (svc *Service) CourseInUse(sym string) (bool, error) {
	goals, err := svc.repo.QueryAllGoals()
	if err != nil {
		return false, err
	}
	return CourseInUse(goals, sym), nil
}

func (svc *Service) ChapterInUse(sym string, seq int) (bool, error) {
	goals, err := svc.repo.QueryAllGoals()
	if err != nil {
		return false, err
	}
	return ChapterInUse(goals, sym, seq), nil
}

// ----------------------------------------------------------------------------

func (svc *Service) catalog() (map[string]course.Course, error) {
	courses, err := svc.courses.QueryAllCourses()
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]course.Course, len(courses))
	for _, crs := range courses {
		catalog[crs.Sym] = crs
	}
	return catalog, nil
}

func setNullDate(dst *null.Time, val string) error {
	if val == "" {
		*dst = null.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return err
	}
	*dst = null.TimeFrom(t)
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
