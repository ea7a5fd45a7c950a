package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

type courseRow struct {
	ID        int       `db:"id"`
	Sym       string    `db:"sym"`
	Title     string    `db:"title"`
	Book      string    `db:"book"`
	Level     float64   `db:"level"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type chapterRow struct {
	ID       int         `db:"id"`
	CourseID int         `db:"course_id"`
	Seq      int         `db:"seq"`
	Title    string      `db:"title"`
	Subject  null.String `db:"subject"`
	Weight   float64     `db:"weight"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:        r.ID,
		Sym:       r.Sym,
		Title:     r.Title,
		Book:      r.Book,
		Level:     r.Level,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r chapterRow) toChapter() course.Chapter {
	return course.Chapter{
		ID:       r.ID,
		CourseID: r.CourseID,
		Seq:      r.Seq,
		Title:    r.Title,
		Subject:  r.Subject,
		Weight:   r.Weight,
	}
}

const courseCols = `id, sym, title, book, level, created_at, updated_at`

func (repo *courseRepository) CheckSymUniqueness(sym string) error {
	var exists bool
	err := repo.db.Get(&exists, `SELECT EXISTS (SELECT 1 FROM course WHERE sym = $1)`, sym)
	if err != nil {
		return errors.Wrap(err, "checking course symbol uniqueness")
	}
	if exists {
		return course.ErrSymExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRow(
		`INSERT INTO course (sym, title, book, level, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		crs.Sym, crs.Title, crs.Book, crs.Level, crs.CreatedAt, crs.UpdatedAt,
	).Scan(&crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	if err = insertChapters(tx, crs.ID, crs.Chapters); err != nil {
		return course.Course{}, err
	}
	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return repo.GetCourseByID(crs.ID)
}

func insertChapters(tx *sqlx.Tx, courseID int, chapters []course.Chapter) error {
	for _, chp := range chapters {
		_, err := tx.Exec(
			`INSERT INTO chapter (course_id, seq, title, subject, weight) VALUES ($1, $2, $3, $4, $5)`,
			courseID, chp.Seq, chp.Title, chp.Subject, chp.Weight)
		if err != nil {
			return errors.Wrapf(err, "inserting chapter %d", chp.Seq)
		}
	}
	return nil
}

func (repo *courseRepository) QueryAllCourses() ([]course.Course, error) {
	var crsRows []courseRow
	if err := repo.db.Select(&crsRows, `SELECT `+courseCols+` FROM course ORDER BY level, sym`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	var chpRows []chapterRow
	if err := repo.db.Select(&chpRows, `SELECT * FROM chapter ORDER BY course_id, seq`); err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}

	byCourse := make(map[int][]course.Chapter, len(crsRows))
	for _, r := range chpRows {
		byCourse[r.CourseID] = append(byCourse[r.CourseID], r.toChapter())
	}
	courses := make([]course.Course, len(crsRows))
	for i, r := range crsRows {
		courses[i] = r.toCourse()
		courses[i].Chapters = byCourse[r.ID]
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(id int) (course.Course, error) {
	return repo.getCourse(`id = $1`, id)
}

func (repo *courseRepository) GetCourseBySym(sym string) (course.Course, error) {
	return repo.getCourse(`sym = $1`, sym)
}

func (repo *courseRepository) getCourse(where string, args ...interface{}) (course.Course, error) {
	var r courseRow
	err := repo.db.Get(&r, `SELECT `+courseCols+` FROM course WHERE `+where, args...)
	if err == sql.ErrNoRows {
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	crs := r.toCourse()

	var chpRows []chapterRow
	if err = repo.db.Select(&chpRows, `SELECT * FROM chapter WHERE course_id = $1 ORDER BY seq`, crs.ID); err != nil {
		return course.Course{}, errors.Wrap(err, "getting course chapters")
	}
	for _, cr := range chpRows {
		crs.Chapters = append(crs.Chapters, cr.toChapter())
	}
	return crs, nil
}

func (repo *courseRepository) UpdateCourse(crs course.Course, replaceChapters bool) (course.Course, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`UPDATE course SET sym = $1, title = $2, book = $3, level = $4, updated_at = $5 WHERE id = $6`,
		crs.Sym, crs.Title, crs.Book, crs.Level, crs.UpdatedAt, crs.ID)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}

	if replaceChapters {
		if _, err = tx.Exec(`DELETE FROM chapter WHERE course_id = $1`, crs.ID); err != nil {
			return course.Course{}, errors.Wrap(err, "replacing chapters")
		}
		if err = insertChapters(tx, crs.ID, crs.Chapters); err != nil {
			return course.Course{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return repo.GetCourseByID(crs.ID)
}

func (repo *courseRepository) DeleteCourse(id int) error {
	if _, err := repo.db.Exec(`DELETE FROM course WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo *courseRepository) DeleteChapter(courseID, seq int) error {
	res, err := repo.db.Exec(`DELETE FROM chapter WHERE course_id = $1 AND seq = $2`, courseID, seq)
	if err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrChapterNotFound
	}
	return nil
}
