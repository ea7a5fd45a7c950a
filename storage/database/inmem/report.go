package inmemdb

import (
	"sort"

	"github.com/trezcool/shule/core/report"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) GetSidecarByStudentID(studentID int) (report.Sidecar, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sc, ok := repo.db.sidecars[studentID]; ok {
		return copySidecar(sc), nil
	}
	return report.Sidecar{}, report.ErrSidecarNotFound
}

func (repo *reportRepository) UpsertSidecar(sc report.Sidecar) (report.Sidecar, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	saved := copySidecar(&sc)
	repo.db.sidecars[sc.StudentID] = &saved
	return sc, nil
}

func (repo *reportRepository) CreateArchive(a report.Archive) (report.Archive, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.archivePK++
	a.ID = repo.db.archivePK
	repo.db.archives[a.ID] = &a
	return a, nil
}

func (repo *reportRepository) QueryArchivesByStudentID(studentID int) ([]report.Archive, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var archives []report.Archive
	for _, a := range repo.db.archives {
		if a.StudentID == studentID {
			cp := *a
			cp.PDF = nil // listing omits the blob
			archives = append(archives, cp)
		}
	}
	sort.Slice(archives, func(i, j int) bool {
		return archives[i].CreatedAt.After(archives[j].CreatedAt)
	})
	return archives, nil
}

func (repo *reportRepository) GetArchiveByID(id int) (report.Archive, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.archives[id]; ok {
		return *a, nil
	}
	return report.Archive{}, report.ErrArchiveNotFound
}

// copySidecar deep-copies the maps and slice so callers cannot mutate
// stored state.
func copySidecar(sc *report.Sidecar) report.Sidecar {
	cp := *sc
	cp.Mastery = make([]report.GoalMastery, len(sc.Mastery))
	copy(cp.Mastery, sc.Mastery)
	cp.FallSocial = copyStringMap(sc.FallSocial)
	cp.SpringSocial = copyStringMap(sc.SpringSocial)
	return cp
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
