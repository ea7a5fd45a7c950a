package course

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrChapterNotFound  = errors.New("chapter not found")
	ErrSymExists        = errors.New("a course with this symbol already exists")
	ErrDuplicateChapter = errors.New("duplicate chapter sequence")
	ErrCourseInUse      = errors.New("course has chapters referenced by student goals")
	ErrChapterInUse     = errors.New("chapter is referenced by student goals")
)

type (
	Repository interface {
		CheckSymUniqueness(sym string) error
		CreateCourse(crs Course) (Course, error)
		QueryAllCourses() ([]Course, error)
		GetCourseByID(id int) (Course, error)
		GetCourseBySym(sym string) (Course, error)
		UpdateCourse(crs Course, replaceChapters bool) (Course, error)
		DeleteCourse(id int) error
		DeleteChapter(courseID, seq int) error
	}

	// UsageChecker reports whether student goals still reference a course
	// or chapter. The pace service implements it.
	UsageChecker interface {
		CourseInUse(sym string) (bool, error)
		ChapterInUse(sym string, seq int) (bool, error)
	}

	Service struct {
		repo  Repository
		usage UsageChecker
	}
)

func NewService(repo Repository, usage UsageChecker) *Service {
	return &Service{
		repo:  repo,
		usage: usage,
	}
}

func (svc *Service) CheckSymUniqueness(sym string) error {
	if err := svc.repo.CheckSymUniqueness(sym); err != nil {
		if err == ErrSymExists {
			return core.NewValidationError(err, core.FieldError{Field: "sym", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Sym:       nc.Sym,
		Title:     nc.Title,
		Book:      nc.Book,
		Level:     nc.Level,
		Chapters:  make([]Chapter, 0, len(nc.Chapters)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, ch := range nc.Chapters {
		chp := Chapter{
			Seq:    ch.Seq,
			Title:  ch.Title,
			Weight: ch.Weight,
		}
		if ch.Subject != "" {
			chp.Subject.SetValid(ch.Subject)
		}
		crs.Chapters = append(crs.Chapters, chp)
	}
	return svc.repo.CreateCourse(crs)
}

// CreateFromFile parses an uploaded course file and creates the course.
func (svc *Service) CreateFromFile(r io.Reader) (Course, error) {
	nc, err := ParseFile(r)
	if err != nil {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
	}
	if err = nc.Validate(svc); err != nil {
		return Course{}, err
	}
	return svc.Create(nc)
}

func (svc *Service) QueryAll() ([]Course, error) {
	return svc.repo.QueryAllCourses()
}

func (svc *Service) GetByID(id int) (Course, error) {
	return svc.repo.GetCourseByID(id)
}

func (svc *Service) GetBySym(sym string) (Course, error) {
	return svc.repo.GetCourseBySym(core.CleanString(sym, true /* lower */))
}

func (svc *Service) Update(id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Book != "" {
		crs.Book = uc.Book
	}
	if uc.Level != nil {
		crs.Level = *uc.Level
	}
	replaceChapters := uc.Chapters != nil
	if replaceChapters {
		crs.Chapters = crs.Chapters[:0]
		for _, ch := range uc.Chapters {
			chp := Chapter{
				CourseID: crs.ID,
				Seq:      ch.Seq,
				Title:    ch.Title,
				Weight:   ch.Weight,
			}
			if ch.Subject != "" {
				chp.Subject.SetValid(ch.Subject)
			}
			crs.Chapters = append(crs.Chapters, chp)
		}
	}
	crs.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCourse(crs, replaceChapters)
}

// Delete removes a course. It refuses while any student goal references
// one of the course's chapters.
func (svc *Service) Delete(id int) error {
	crs, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return err
	}
	inUse, err := svc.usage.CourseInUse(crs.Sym)
	if err != nil {
		return err
	}
	if inUse {
		return core.NewValidationError(
			ErrCourseInUse,
			core.FieldError{Field: "sym", Error: fmt.Sprintf("course %q still has goals assigned", crs.Sym)},
		)
	}
	return svc.repo.DeleteCourse(id)
}

// DeleteChapter removes one chapter. It refuses while any student goal
// references the chapter.
func (svc *Service) DeleteChapter(courseID, seq int) error {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return err
	}
	if _, ok := crs.Chapter(seq); !ok {
		return ErrChapterNotFound
	}
	inUse, err := svc.usage.ChapterInUse(crs.Sym, seq)
	if err != nil {
		return err
	}
	if inUse {
		return core.NewValidationError(
			ErrChapterInUse,
			core.FieldError{Field: "seq", Error: fmt.Sprintf("chapter %d of %q still has goals assigned", seq, crs.Sym)},
		)
	}
	return svc.repo.DeleteChapter(courseID, seq)
}
