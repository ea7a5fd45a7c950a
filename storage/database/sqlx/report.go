package sqlxrepos

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/report"
)

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *sql.DB) *reportRepository {
	return &reportRepository{db: sqlx.NewDb(db, "postgres")}
}

// JSONB columns hold the structured sidecar parts.
type sidecarRow struct {
	StudentID      int       `db:"student_id"`
	Facts          []byte    `db:"facts"`
	Mastery        []byte    `db:"mastery"`
	FallSocial     []byte    `db:"fall_social"`
	SpringSocial   []byte    `db:"spring_social"`
	FallComplete   string    `db:"fall_complete"`
	SpringComplete string    `db:"spring_complete"`
	SummerComplete string    `db:"summer_complete"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r sidecarRow) toSidecar() (report.Sidecar, error) {
	sc := report.Sidecar{
		StudentID:      r.StudentID,
		FallComplete:   r.FallComplete,
		SpringComplete: r.SpringComplete,
		SummerComplete: r.SummerComplete,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	for _, part := range []struct {
		raw []byte
		dst interface{}
	}{
		{r.Facts, &sc.Facts},
		{r.Mastery, &sc.Mastery},
		{r.FallSocial, &sc.FallSocial},
		{r.SpringSocial, &sc.SpringSocial},
	} {
		if len(part.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(part.raw, part.dst); err != nil {
			return report.Sidecar{}, errors.Wrap(err, "decoding sidecar")
		}
	}
	return sc, nil
}

func (repo *reportRepository) GetSidecarByStudentID(studentID int) (report.Sidecar, error) {
	var r sidecarRow
	err := repo.db.Get(&r, `SELECT * FROM report_sidecar WHERE student_id = $1`, studentID)
	if err == sql.ErrNoRows {
		return report.Sidecar{}, report.ErrSidecarNotFound
	}
	if err != nil {
		return report.Sidecar{}, errors.Wrap(err, "getting sidecar")
	}
	return r.toSidecar()
}

func (repo *reportRepository) UpsertSidecar(sc report.Sidecar) (report.Sidecar, error) {
	facts, err := json.Marshal(sc.Facts)
	if err != nil {
		return report.Sidecar{}, errors.Wrap(err, "encoding sidecar")
	}
	mastery, err := json.Marshal(sc.Mastery)
	if err != nil {
		return report.Sidecar{}, errors.Wrap(err, "encoding sidecar")
	}
	fallSocial, err := json.Marshal(sc.FallSocial)
	if err != nil {
		return report.Sidecar{}, errors.Wrap(err, "encoding sidecar")
	}
	springSocial, err := json.Marshal(sc.SpringSocial)
	if err != nil {
		return report.Sidecar{}, errors.Wrap(err, "encoding sidecar")
	}

	_, err = repo.db.Exec(
		`INSERT INTO report_sidecar (student_id, facts, mastery, fall_social, spring_social,
		                             fall_complete, spring_complete, summer_complete, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (student_id) DO UPDATE
		 SET facts = EXCLUDED.facts, mastery = EXCLUDED.mastery,
		     fall_social = EXCLUDED.fall_social, spring_social = EXCLUDED.spring_social,
		     fall_complete = EXCLUDED.fall_complete, spring_complete = EXCLUDED.spring_complete,
		     summer_complete = EXCLUDED.summer_complete, updated_at = EXCLUDED.updated_at`,
		sc.StudentID, facts, mastery, fallSocial, springSocial,
		sc.FallComplete, sc.SpringComplete, sc.SummerComplete, sc.CreatedAt, sc.UpdatedAt)
	if err != nil {
		return report.Sidecar{}, errors.Wrap(err, "upserting sidecar")
	}
	return sc, nil
}

// ----------------------------------------------------------------------------
// archives

type archiveRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	Term      string    `db:"term"`
	Filename  string    `db:"filename"`
	PDF       []byte    `db:"pdf"`
	CreatedAt time.Time `db:"created_at"`
}

func (r archiveRow) toArchive() report.Archive {
	return report.Archive{
		ID:        r.ID,
		StudentID: r.StudentID,
		Term:      r.Term,
		Filename:  r.Filename,
		PDF:       r.PDF,
		CreatedAt: r.CreatedAt,
	}
}

func (repo *reportRepository) CreateArchive(a report.Archive) (report.Archive, error) {
	err := repo.db.QueryRow(
		`INSERT INTO report_archive (student_id, term, filename, pdf, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.StudentID, a.Term, a.Filename, a.PDF, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return report.Archive{}, errors.Wrap(err, "archiving report")
	}
	return a, nil
}

func (repo *reportRepository) QueryArchivesByStudentID(studentID int) ([]report.Archive, error) {
	var rows []archiveRow
	err := repo.db.Select(&rows,
		`SELECT id, student_id, term, filename, created_at, ''::bytea AS pdf
		 FROM report_archive WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying report archives")
	}
	archives := make([]report.Archive, len(rows))
	for i, r := range rows {
		archives[i] = r.toArchive()
	}
	return archives, nil
}

func (repo *reportRepository) GetArchiveByID(id int) (report.Archive, error) {
	var r archiveRow
	err := repo.db.Get(&r, `SELECT * FROM report_archive WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return report.Archive{}, report.ErrArchiveNotFound
	}
	if err != nil {
		return report.Archive{}, errors.Wrap(err, "getting report archive")
	}
	return r.toArchive(), nil
}
