package inmemdb

import (
	"sort"

	"github.com/trezcool/shule/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, copyCourse(crs))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Sym < courses[j].Sym })
	return courses
}

func (repo *courseRepository) CheckSymUniqueness(sym string) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Sym == sym {
			return course.ErrSymExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.coursePK++
	crs.ID = repo.db.coursePK
	for i := range crs.Chapters {
		repo.db.chapterPK++
		crs.Chapters[i].ID = repo.db.chapterPK
		crs.Chapters[i].CourseID = crs.ID
	}
	saved := copyCourse(&crs)
	repo.db.courses[crs.ID] = &saved
	return crs, nil
}

func (repo *courseRepository) QueryAllCourses() ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *courseRepository) GetCourseByID(id int) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return copyCourse(crs), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseBySym(sym string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Sym == sym {
			return copyCourse(crs), nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(crs course.Course, replaceChapters bool) (course.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	orig.Sym = crs.Sym
	orig.Title = crs.Title
	orig.Book = crs.Book
	orig.Level = crs.Level
	orig.UpdatedAt = crs.UpdatedAt
	if replaceChapters {
		chapters := make([]course.Chapter, len(crs.Chapters))
		copy(chapters, crs.Chapters)
		for i := range chapters {
			if chapters[i].ID == 0 {
				repo.db.chapterPK++
				chapters[i].ID = repo.db.chapterPK
			}
			chapters[i].CourseID = orig.ID
		}
		orig.Chapters = chapters
	}
	return copyCourse(orig), nil
}

func (repo *courseRepository) DeleteCourse(id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.courses, id)
	return nil
}

func (repo *courseRepository) DeleteChapter(courseID, seq int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	crs, ok := repo.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	for i, ch := range crs.Chapters {
		if ch.Seq == seq {
			crs.Chapters = append(crs.Chapters[:i], crs.Chapters[i+1:]...)
			return nil
		}
	}
	return course.ErrChapterNotFound
}

// copyCourse deep-copies so callers cannot mutate stored chapters.
func copyCourse(crs *course.Course) course.Course {
	cp := *crs
	cp.Chapters = make([]course.Chapter, len(crs.Chapters))
	copy(cp.Chapters, crs.Chapters)
	return cp
}
