package report

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/pace"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/render"
)

var (
	// errors
	ErrSidecarNotFound = errors.New("report sidecar not found")
	ErrArchiveNotFound = errors.New("report archive not found")
	ErrNoParentEmail   = errors.New("student has no parent email on file")
)

type (
	Repository interface {
		// GetSidecarByStudentID keys by the student's user ID.
		GetSidecarByStudentID(studentID int) (Sidecar, error)
		UpsertSidecar(sc Sidecar) (Sidecar, error)

		CreateArchive(a Archive) (Archive, error)
		QueryArchivesByStudentID(studentID int) ([]Archive, error)
		GetArchiveByID(id int) (Archive, error)
	}

	// PaceService is the slice of the pace service the report builder
	// consumes.
	PaceService interface {
		GetPace(userID int, now time.Time) (pace.Pace, error)
		Summarize(userID int, now time.Time) (pace.Pace, pace.Summary, error)
		Calendar() (pace.Calendar, error)
	}

	Service struct {
		repo    Repository
		paces   PaceService
		users   user.Repository
		courses course.Repository
		render  rendersvc.Service
		mailSvc core.EmailService
	}
)

func NewService(
	repo Repository,
	paces PaceService,
	users user.Repository,
	courses course.Repository,
	render rendersvc.Service,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		repo:    repo,
		paces:   paces,
		users:   users,
		courses: courses,
		render:  render,
		mailSvc: mailSvc,
	}
}

// GetSidecar returns the student's sidecar, or a default one when none
// has been recorded yet.
func (svc *Service) GetSidecar(studentID int) (Sidecar, error) {
	sc, err := svc.repo.GetSidecarByStudentID(studentID)
	if err == ErrSidecarNotFound {
		return Sidecar{StudentID: studentID}, nil
	}
	return sc, err
}

func (svc *Service) UpdateSidecar(studentID int, us UpdateSidecar) (Sidecar, error) {
	if err := us.Validate(); err != nil {
		return Sidecar{}, err
	}
	if _, err := svc.users.GetStudentByUserID(studentID); err != nil {
		return Sidecar{}, err
	}
	sc, err := svc.GetSidecar(studentID)
	if err != nil {
		return Sidecar{}, err
	}

	if us.Facts != nil {
		sc.Facts = *us.Facts
	}
	if us.Mastery != nil {
		sc.Mastery = us.Mastery
	}
	if us.FallSocial != nil {
		sc.FallSocial = us.FallSocial
	}
	if us.SpringSocial != nil {
		sc.SpringSocial = us.SpringSocial
	}
	if us.FallComplete != nil {
		sc.FallComplete = *us.FallComplete
	}
	if us.SpringComplete != nil {
		sc.SpringComplete = *us.SpringComplete
	}
	if us.SummerComplete != nil {
		sc.SummerComplete = *us.SummerComplete
	}

	now := time.Now().UTC()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now
	return svc.repo.UpsertSidecar(sc)
}

// BuildCard assembles one term's report card without rendering it.
func (svc *Service) BuildCard(studentID int, term pace.Term, now time.Time) (Card, error) {
	p, sum, err := svc.paces.Summarize(studentID, now)
	if err != nil {
		return Card{}, err
	}
	cal, err := svc.paces.Calendar()
	if err != nil {
		return Card{}, err
	}
	sc, err := svc.GetSidecar(studentID)
	if err != nil {
		return Card{}, err
	}
	catalog, err := svc.catalog()
	if err != nil {
		return Card{}, err
	}
	return BuildCard(&p, sum, sc, cal, term, catalog, now), nil
}

// RenderCard builds the card, renders it to PDF and archives the
// result.
func (svc *Service) RenderCard(ctx context.Context, studentID int, term pace.Term, now time.Time) (Archive, error) {
	card, err := svc.BuildCard(studentID, term, now)
	if err != nil {
		return Archive{}, err
	}
	md, err := renderCard(card)
	if err != nil {
		return Archive{}, err
	}
	pdf, err := svc.render.RenderPDF(ctx, md)
	if err != nil {
		return Archive{}, err
	}

	usr, err := svc.users.GetUserByID(studentID)
	if err != nil {
		return Archive{}, err
	}
	return svc.repo.CreateArchive(Archive{
		StudentID: studentID,
		Term:      string(term),
		Filename:  fmt.Sprintf("%s-%s-%s.pdf", usr.Username, strings.ToLower(string(term)), now.Format("2006-01-02")),
		PDF:       pdf,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Archives(studentID int) ([]Archive, error) {
	return svc.repo.QueryArchivesByStudentID(studentID)
}

func (svc *Service) GetArchive(id int) (Archive, error) {
	return svc.repo.GetArchiveByID(id)
}

// SendParentUpdate emails a progress summary to the student's parent.
func (svc *Service) SendParentUpdate(studentID int, now time.Time) error {
	p, sum, err := svc.paces.Summarize(studentID, now)
	if err != nil {
		return err
	}
	if p.Student.ParentEmail == "" {
		return ErrNoParentEmail
	}
	data := BuildProgress(&p, sum, now)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: p.Student.ParentEmail}},
		Subject:      fmt.Sprintf("Progress update for %s", p.Student.FullName()),
		TemplateName: "parent-update",
		TemplateData: data,
	})
	return nil
}

// SendAllParentUpdates emails every student's parent. Students without
// a parent email are skipped; the count of sent updates is returned.
func (svc *Service) SendAllParentUpdates(now time.Time) (int, error) {
	students, err := svc.users.QueryAllStudents()
	if err != nil {
		return 0, err
	}
	var sent int
	for _, st := range students {
		if st.ParentEmail == "" {
			continue
		}
		if err = svc.SendParentUpdate(st.UserID, now); err != nil {
			return sent, errors.Wrapf(err, "student %q", st.FullName())
		}
		sent++
	}
	return sent, nil
}

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
