package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/pace"
)

type paceRepository struct {
	db *sqlx.DB
}

var _ pace.Repository = (*paceRepository)(nil)

func NewPaceRepository(db *sql.DB) *paceRepository {
	return &paceRepository{db: sqlx.NewDb(db, "postgres")}
}

type goalRow struct {
	ID         int         `db:"id"`
	StudentID  int         `db:"student_id"`
	Sym        string      `db:"sym"`
	Seq        int         `db:"seq"`
	Review     bool        `db:"review"`
	Incomplete bool        `db:"incomplete"`
	Due        null.Time   `db:"due"`
	Done       null.Time   `db:"done"`
	Tries      null.Int16  `db:"tries"`
	Score      null.String `db:"score"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r goalRow) toGoal() pace.Goal {
	return pace.Goal{
		ID:         r.ID,
		StudentID:  r.StudentID,
		Sym:        r.Sym,
		Seq:        r.Seq,
		Review:     r.Review,
		Incomplete: r.Incomplete,
		Due:        r.Due,
		Done:       r.Done,
		Tries:      r.Tries,
		Score:      r.Score,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

const goalCols = `id, student_id, sym, seq, review, incomplete, due, done, tries, score, created_at, updated_at`

func (repo *paceRepository) CreateGoal(g pace.Goal) (pace.Goal, error) {
	err := repo.db.QueryRow(
		`INSERT INTO goal (student_id, sym, seq, review, incomplete, due, done, tries, score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		g.StudentID, g.Sym, g.Seq, g.Review, g.Incomplete, g.Due, g.Done, g.Tries, g.Score,
		g.CreatedAt, g.UpdatedAt,
	).Scan(&g.ID)
	if err != nil {
		return pace.Goal{}, errors.Wrap(err, "creating goal")
	}
	return g, nil
}

func (repo *paceRepository) GetGoalByID(id int) (pace.Goal, error) {
	var r goalRow
	err := repo.db.Get(&r, `SELECT `+goalCols+` FROM goal WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return pace.Goal{}, pace.ErrGoalNotFound
	}
	if err != nil {
		return pace.Goal{}, errors.Wrap(err, "getting goal")
	}
	return r.toGoal(), nil
}

func (repo *paceRepository) QueryGoalsByStudentID(studentID int) ([]pace.Goal, error) {
	return repo.queryGoals(`SELECT `+goalCols+` FROM goal WHERE student_id = $1 ORDER BY id`, studentID)
}

func (repo *paceRepository) QueryAllGoals() ([]pace.Goal, error) {
	return repo.queryGoals(`SELECT ` + goalCols + ` FROM goal ORDER BY id`)
}

func (repo *paceRepository) queryGoals(q string, args ...interface{}) ([]pace.Goal, error) {
	var rows []goalRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying goals")
	}
	goals := make([]pace.Goal, len(rows))
	for i, r := range rows {
		goals[i] = r.toGoal()
	}
	return goals, nil
}

func (repo *paceRepository) UpdateGoal(g pace.Goal) (pace.Goal, error) {
	var r goalRow
	err := repo.db.Get(&r,
		`UPDATE goal
		 SET review = $1, incomplete = $2, due = $3, done = $4, tries = $5, score = $6, updated_at = $7
		 WHERE id = $8
		 RETURNING `+goalCols,
		g.Review, g.Incomplete, g.Due, g.Done, g.Tries, g.Score, g.UpdatedAt, g.ID)
	if err == sql.ErrNoRows {
		return pace.Goal{}, pace.ErrGoalNotFound
	}
	if err != nil {
		return pace.Goal{}, errors.Wrap(err, "updating goal")
	}
	return r.toGoal(), nil
}

func (repo *paceRepository) DeleteGoal(id int) error {
	res, err := repo.db.Exec(`DELETE FROM goal WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting goal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pace.ErrGoalNotFound
	}
	return nil
}

func (repo *paceRepository) DeleteGoalsByStudentID(studentID int) error {
	if _, err := repo.db.Exec(`DELETE FROM goal WHERE student_id = $1`, studentID); err != nil {
		return errors.Wrap(err, "deleting student goals")
	}
	return nil
}

// ----------------------------------------------------------------------------
// calendar

func (repo *paceRepository) ReplaceSessionDays(days []time.Time) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "replacing session days")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(`DELETE FROM session_day`); err != nil {
		return errors.Wrap(err, "replacing session days")
	}
	for _, day := range days {
		if _, err = tx.Exec(`INSERT INTO session_day (day) VALUES ($1) ON CONFLICT DO NOTHING`, day); err != nil {
			return errors.Wrap(err, "replacing session days")
		}
	}
	return errors.Wrap(tx.Commit(), "replacing session days")
}

func (repo *paceRepository) QuerySessionDays() ([]time.Time, error) {
	var days []time.Time
	if err := repo.db.Select(&days, `SELECT day FROM session_day ORDER BY day`); err != nil {
		return nil, errors.Wrap(err, "querying session days")
	}
	return days, nil
}

func (repo *paceRepository) SetNamedDate(name string, date time.Time) error {
	_, err := repo.db.Exec(
		`INSERT INTO named_date (name, date) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET date = EXCLUDED.date`,
		name, date)
	return errors.Wrap(err, "setting named date")
}

func (repo *paceRepository) DeleteNamedDate(name string) error {
	res, err := repo.db.Exec(`DELETE FROM named_date WHERE name = $1`, name)
	if err != nil {
		return errors.Wrap(err, "deleting named date")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pace.ErrDateNotFound
	}
	return nil
}

func (repo *paceRepository) QueryNamedDates() (map[string]time.Time, error) {
	var rows []struct {
		Name string    `db:"name"`
		Date time.Time `db:"date"`
	}
	if err := repo.db.Select(&rows, `SELECT name, date FROM named_date`); err != nil {
		return nil, errors.Wrap(err, "querying named dates")
	}
	dates := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		dates[r.Name] = r.Date
	}
	return dates, nil
}
