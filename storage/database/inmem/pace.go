package inmemdb

import (
	"sort"
	"time"

	"github.com/trezcool/shule/core/pace"
)

type paceRepository struct {
	db *DB
}

var _ pace.Repository = (*paceRepository)(nil)

func NewPaceRepository(db *DB) *paceRepository {
	return &paceRepository{db: db}
}

func (repo *paceRepository) CreateGoal(g pace.Goal) (pace.Goal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.goalPK++
	g.ID = repo.db.goalPK
	repo.db.goals[g.ID] = &g
	return g, nil
}

func (repo *paceRepository) GetGoalByID(id int) (pace.Goal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.goals[id]; ok {
		return *g, nil
	}
	return pace.Goal{}, pace.ErrGoalNotFound
}

func (repo *paceRepository) queryGoals(match func(*pace.Goal) bool) []pace.Goal {
	var goals []pace.Goal
	for _, g := range repo.db.goals {
		if match(g) {
			goals = append(goals, *g)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	return goals
}

func (repo *paceRepository) QueryGoalsByStudentID(studentID int) ([]pace.Goal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryGoals(func(g *pace.Goal) bool { return g.StudentID == studentID }), nil
}

func (repo *paceRepository) QueryAllGoals() ([]pace.Goal, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryGoals(func(*pace.Goal) bool { return true }), nil
}

func (repo *paceRepository) UpdateGoal(g pace.Goal) (pace.Goal, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.goals[g.ID]; !ok {
		return pace.Goal{}, pace.ErrGoalNotFound
	}
	repo.db.goals[g.ID] = &g
	return g, nil
}

func (repo *paceRepository) DeleteGoal(id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.goals[id]; !ok {
		return pace.ErrGoalNotFound
	}
	delete(repo.db.goals, id)
	return nil
}

func (repo *paceRepository) DeleteGoalsByStudentID(studentID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, g := range repo.db.goals {
		if g.StudentID == studentID {
			delete(repo.db.goals, id)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// calendar

func (repo *paceRepository) ReplaceSessionDays(days []time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.sessionDays = make([]time.Time, len(days))
	copy(repo.db.sessionDays, days)
	sort.Slice(repo.db.sessionDays, func(i, j int) bool {
		return repo.db.sessionDays[i].Before(repo.db.sessionDays[j])
	})
	return nil
}

func (repo *paceRepository) QuerySessionDays() ([]time.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	days := make([]time.Time, len(repo.db.sessionDays))
	copy(days, repo.db.sessionDays)
	return days, nil
}

func (repo *paceRepository) SetNamedDate(name string, date time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.namedDates[name] = date
	return nil
}

func (repo *paceRepository) DeleteNamedDate(name string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.namedDates[name]; !ok {
		return pace.ErrDateNotFound
	}
	delete(repo.db.namedDates, name)
	return nil
}

func (repo *paceRepository) QueryNamedDates() (map[string]time.Time, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	dates := make(map[string]time.Time, len(repo.db.namedDates))
	for name, date := range repo.db.namedDates {
		dates[name] = date
	}
	return dates, nil
}
