package pace

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrNoSessionDays   = errors.New("no session days remain to pace over")
	ErrTooFewGoals     = errors.New("at least two scheduled goals are needed to pace")
	ErrNoScheduledWork = errors.New("the scheduled goals carry no weight")
)

// Autopace respaces every due-dated goal in p over the given session
// days, proportionally to cumulative goal weight. Goals without a due
// date are left untouched and the goal order is preserved. days must be
// sorted ascending, as Calendar.RemainingFrom returns them.
func Autopace(p *Pace, days []time.Time) error {
	if len(days) == 0 {
		return ErrNoSessionDays
	}

	var (
		scheduled []*Goal
		total     float64
	)
	for i := range p.Goals {
		if p.Goals[i].Due.Valid {
			scheduled = append(scheduled, &p.Goals[i])
			total += p.Goals[i].Weight
		}
	}
	if len(scheduled) < 2 {
		return ErrTooFewGoals
	}
	if total < 1e-3 {
		return ErrNoScheduledWork
	}

	n := float64(len(days))
	var running float64
	for _, g := range scheduled {
		running += g.Weight
		idx := int(math.Ceil(n * running / total))
		if idx < 1 {
			idx = 1
		}
		if idx > len(days) {
			idx = len(days)
		}
		g.Due.SetValid(days[idx-1])
	}
	return nil
}
