// Package inmemdb is an in-memory storage backend used by tests and
// local tinkering. Data lives for the life of the process.
package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/pace"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
)

type DB struct {
	mutex sync.RWMutex

	userPK    int
	studentPK int
	coursePK  int
	chapterPK int
	goalPK    int
	archivePK int

	users    map[int]*user.User
	students map[int]*user.Student // by user ID
	courses  map[int]*course.Course
	goals    map[int]*pace.Goal

	sessionDays []time.Time
	namedDates  map[string]time.Time

	sidecars map[int]*report.Sidecar // by student user ID
	archives map[int]*report.Archive
}

func NewDB() *DB {
	return &DB{
		users:      make(map[int]*user.User),
		students:   make(map[int]*user.Student),
		courses:    make(map[int]*course.Course),
		goals:      make(map[int]*pace.Goal),
		namedDates: make(map[string]time.Time),
		sidecars:   make(map[int]*report.Sidecar),
		archives:   make(map[int]*report.Archive),
	}
}
