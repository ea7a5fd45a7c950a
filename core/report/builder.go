package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/pace"
)

type (
	// Card is the flat field set a report template consumes. Grade
	// fields are pre-rendered strings so the template stays dumb; empty
	// strings mean the figure is not available yet.
	Card struct {
		Student string
		Teacher string
		Term    string
		Date    string

		Due           int
		Done          int
		Remaining     int
		TestAverage   string
		ExamPercent   string
		SemesterGrade string
		Letter        string
		Notices       int
		LeadLag       string
		Lagging       bool

		Goals      []GoalLine
		Facts      []FactLine
		Social     []SocialLine
		Completion string
		// Summer plans, shown on the spring card only.
		SummerPlans string

		Problems []string
	}

	// GoalLine is one completed or scheduled goal on the card.
	GoalLine struct {
		Course  string
		Chapter string
		Due     string
		Done    string
		Tries   string
		Score   string
		Mastery string
	}

	FactLine struct {
		Operation string
		Status    string
	}

	SocialLine struct {
		Skill  string
		Rating string
	}
)

// BuildCard assembles one term's report card from the pace summary and
// the sidecar. Goals are listed when their term bucket matches, in pace
// order.
func BuildCard(p *pace.Pace, sum pace.Summary, sc Sidecar, cal pace.Calendar,
	term pace.Term, catalog map[string]course.Course, now time.Time) Card {

	ts := sum.Fall
	social := sc.FallSocial
	completion := sc.FallComplete
	if term == pace.Spring {
		ts = sum.Spring
		social = sc.SpringSocial
		completion = sc.SpringComplete
	}

	card := Card{
		Student:    p.Student.FullName(),
		Teacher:    p.Teacher.Name,
		Term:       string(term),
		Date:       now.Format("January 2, 2006"),
		Due:        ts.Due,
		Done:       ts.Done,
		Notices:    ts.Notices,
		Letter:     ts.Letter,
		LeadLag:    ts.LeadLag,
		Lagging:    ts.Lagging,
		Completion: completion,
	}
	if n := ts.Due - ts.Done; n > 0 {
		card.Remaining = n
	}
	if ts.TestAverage.Valid {
		card.TestAverage = ts.Mark(ts.TestAverage.Int)
	}
	if ts.ExamPercent.Valid {
		card.ExamPercent = ts.Mark(ts.ExamPercent.Int)
	}
	if ts.SemesterGrade.Valid {
		card.SemesterGrade = ts.Mark(ts.SemesterGrade.Int)
	}
	if term == pace.Spring {
		card.SummerPlans = sc.SummerComplete
	}

	for i := range p.Goals {
		g := &p.Goals[i]
		bucket := g.Due
		if !bucket.Valid {
			bucket = g.Done
		}
		if !bucket.Valid {
			continue
		}
		if t, err := cal.TermOf(bucket.Time); err != nil || t != term {
			continue
		}
		card.Goals = append(card.Goals, goalLine(g, &sc, catalog))
	}

	card.Facts = []FactLine{
		{Operation: "Addition", Status: sc.Facts.Add.Label()},
		{Operation: "Subtraction", Status: sc.Facts.Sub.Label()},
		{Operation: "Multiplication", Status: sc.Facts.Mul.Label()},
		{Operation: "Division", Status: sc.Facts.Div.Label()},
	}

	skills := make([]string, 0, len(social))
	for skill := range social {
		skills = append(skills, skill)
	}
	sort.Strings(skills)
	for _, skill := range skills {
		card.Social = append(card.Social, SocialLine{Skill: skill, Rating: social[skill]})
	}

	for _, pr := range sum.Problems {
		card.Problems = append(card.Problems, pr.Error)
	}
	return card
}

func goalLine(g *pace.Goal, sc *Sidecar, catalog map[string]course.Course) GoalLine {
	line := GoalLine{
		Course:  g.Sym,
		Chapter: fmt.Sprintf("Chapter %d", g.Seq),
		Mastery: sc.MasteryOf(g.ID).Label(),
	}
	if crs, ok := catalog[g.Sym]; ok {
		line.Course = crs.Title
		if chp, ok := crs.Chapter(g.Seq); ok && chp.Title != "" {
			line.Chapter = chp.Title
		}
	}
	if g.Due.Valid {
		line.Due = g.Due.Time.Format("Jan 2")
	}
	if g.Done.Valid {
		line.Done = g.Done.Time.Format("Jan 2")
		line.Score = g.Score.String
		if g.Tries.Valid {
			line.Tries = fmt.Sprintf("%d", g.Tries.Int16)
		}
	}
	return line
}
