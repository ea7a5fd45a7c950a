package pace

import (
	"math/rand"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/user"
)

var testScale = core.SchoolConfig{GradeScale: map[string]int{"a": 90, "b": 80, "c": 70, "d": 60}}

func testCatalog() map[string]course.Course {
	crs := course.Course{ID: 1, Sym: "alg", Title: "Algebra 1", Level: 8}
	for seq := 1; seq <= 10; seq++ {
		crs.Chapters = append(crs.Chapters, course.Chapter{CourseID: 1, Seq: seq, Weight: 1})
	}
	return map[string]course.Course{"alg": crs}
}

func yearGoals() []Goal {
	due := func(seq int, d time.Time) Goal {
		return Goal{ID: seq, StudentID: 1, Sym: "alg", Seq: seq, Due: null.TimeFrom(d)}
	}
	done := func(g Goal, d time.Time, score string) Goal {
		g.Done = null.TimeFrom(d)
		g.Score = null.StringFrom(score)
		g.Tries = null.Int16From(1)
		return g
	}

	goals := []Goal{
		done(due(1, date(2021, 9, 15)), date(2021, 9, 15), "90"),
		done(due(2, date(2021, 10, 1)), date(2021, 10, 1), "90"),
		done(due(3, date(2021, 11, 1)), date(2021, 11, 1), "90"),
		done(due(4, date(2021, 12, 1)), date(2021, 12, 1), "90"),
		done(due(5, date(2022, 2, 1)), date(2022, 2, 1), "18/20"),
		done(due(6, date(2022, 2, 15)), date(2022, 2, 16), "oops"),
		due(7, date(2022, 4, 1)),
		due(8, date(2022, 5, 1)),
		// extra chapter done outside the assigned pace
		done(Goal{ID: 9, StudentID: 1, Sym: "alg", Seq: 9}, date(2021, 12, 20), "95"),
	}
	goals[7].Incomplete = true
	return goals
}

func yearCalendar() Calendar {
	days := []time.Time{
		date(2021, 9, 1), date(2021, 10, 15), date(2021, 12, 10),
		date(2022, 1, 20), date(2022, 3, 15), date(2022, 5, 30),
	}
	return NewCalendar(days, date(2022, 1, 15), date(2022, 6, 1))
}

func TestSummarize(t *testing.T) {
	st := user.Student{
		ID:          1,
		UserID:      1,
		Last:        "Kalume",
		Rest:        "Grace",
		FallExam:    null.StringFrom("85"),
		FallNotices: 1,
	}
	now := date(2022, 3, 1)

	p, err := NewPace(user.User{ID: 1}, st, user.User{ID: 2}, yearGoals(), testCatalog(), now)
	if err != nil {
		t.Fatalf("NewPace: %v", err)
	}
	sum := Summarize(&p, yearCalendar(), now, testScale)

	// whole-year totals
	if sum.NScheduled != 8 {
		t.Errorf("NScheduled = %d; want 8", sum.NScheduled)
	}
	if sum.NDue != 6 {
		t.Errorf("NDue = %d; want 6", sum.NDue)
	}
	if sum.NDone != 7 {
		t.Errorf("NDone = %d; want 7", sum.NDone)
	}
	if sum.LastDoneIdx != 8 {
		t.Errorf("LastDoneIdx = %d; want 8 (the undated extra chapter sorts last)", sum.LastDoneIdx)
	}
	if !sum.PreviouslyIncomplete || !sum.HasIncomplete {
		t.Error("chapter 8 is incomplete and undone; both incomplete flags should be set")
	}
	if sum.HasReview {
		t.Error("HasReview = true; no goal is a review")
	}

	// fall closed out with an exam
	fall := sum.Fall
	if fall.Due != 4 || fall.Done != 5 {
		t.Errorf("fall due/done = %d/%d; want 4/5", fall.Due, fall.Done)
	}
	if !fall.TestAverage.Valid || fall.TestAverage.Int != 91 {
		t.Errorf("fall test average = %+v; want 91", fall.TestAverage)
	}
	if !fall.ExamPercent.Valid || fall.ExamPercent.Int != 85 {
		t.Errorf("fall exam = %+v; want 85", fall.ExamPercent)
	}
	// 0.85*0.2 + 0.91*0.8 - 0.01 = 0.888
	if !fall.SemesterGrade.Valid || fall.SemesterGrade.Int != 89 {
		t.Errorf("fall semester grade = %+v; want 89", fall.SemesterGrade)
	}
	if fall.Letter != "b" {
		t.Errorf("fall letter = %q; want b", fall.Letter)
	}
	if fall.Provisional {
		t.Error("fall should not be provisional")
	}
	// done weight 0.5 vs due weight 0.4 over a total of 0.8
	if fall.LeadLag != "+13" || fall.Lagging {
		t.Errorf("fall lead/lag = %q (lagging=%v); want +13", fall.LeadLag, fall.Lagging)
	}

	// spring still in progress, no exam yet
	spring := sum.Spring
	if spring.Due != 2 || spring.Done != 2 {
		t.Errorf("spring due/done = %d/%d; want 2/2", spring.Due, spring.Done)
	}
	if !spring.TestAverage.Valid || spring.TestAverage.Int != 90 {
		t.Errorf("spring test average = %+v; want 90 (the bad score is skipped)", spring.TestAverage)
	}
	if spring.ExamPercent.Valid || spring.SemesterGrade.Valid {
		t.Error("spring has no exam; exam percent and semester grade should be absent")
	}
	if !spring.Provisional {
		t.Error("spring should be provisional: an incomplete goal is still undone")
	}
	if spring.LeadLag != "+0" || spring.Lagging {
		t.Errorf("spring lead/lag = %q (lagging=%v); want +0", spring.LeadLag, spring.Lagging)
	}

	// the one unparsable score is reported, not fatal
	if len(sum.Problems) != 1 {
		t.Fatalf("got %d problems; want 1: %+v", len(sum.Problems), sum.Problems)
	}
	if sum.Problems[0].GoalID != 6 {
		t.Errorf("problem goal = %d; want 6", sum.Problems[0].GoalID)
	}
}

func TestSummarizeBadExamMark(t *testing.T) {
	st := user.Student{ID: 1, UserID: 1, FallExam: null.StringFrom("n/a")}
	now := date(2022, 3, 1)

	p, err := NewPace(user.User{ID: 1}, st, user.User{ID: 2}, yearGoals(), testCatalog(), now)
	if err != nil {
		t.Fatalf("NewPace: %v", err)
	}
	sum := Summarize(&p, yearCalendar(), now, testScale)

	// the test average survives; only the semester grade is suppressed
	if !sum.Fall.TestAverage.Valid {
		t.Error("fall test average should still be present")
	}
	if sum.Fall.ExamPercent.Valid || sum.Fall.SemesterGrade.Valid {
		t.Error("an unparsable exam mark should suppress the fall exam percent and semester grade")
	}
	found := false
	for _, pr := range sum.Problems {
		if pr.Field == "fall_exam" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a fall_exam problem, got %+v", sum.Problems)
	}
}

func TestSummarizeOutOfRangeGoal(t *testing.T) {
	goals := []Goal{
		{ID: 1, StudentID: 1, Sym: "alg", Seq: 1, Due: null.TimeFrom(date(2021, 10, 1))},
		// summer work, outside the academic year
		{ID: 2, StudentID: 1, Sym: "alg", Seq: 2, Due: null.TimeFrom(date(2022, 7, 15))},
	}
	now := date(2022, 3, 1)
	p, err := NewPace(user.User{ID: 1}, user.Student{ID: 1, UserID: 1}, user.User{ID: 2}, goals, testCatalog(), now)
	if err != nil {
		t.Fatalf("NewPace: %v", err)
	}
	sum := Summarize(&p, yearCalendar(), now, testScale)

	// still counted in the year totals, just not in a term bucket
	if sum.NScheduled != 2 {
		t.Errorf("NScheduled = %d; want 2", sum.NScheduled)
	}
	if sum.Fall.Due+sum.Spring.Due != 1 {
		t.Errorf("bucketed due count = %d; want 1", sum.Fall.Due+sum.Spring.Due)
	}
	if len(sum.Problems) != 1 || sum.Problems[0].GoalID != 2 {
		t.Fatalf("got problems %+v; want one for goal 2", sum.Problems)
	}
}

func TestSummarizeRepeatable(t *testing.T) {
	st := user.Student{
		ID:          1,
		UserID:      1,
		FallExam:    null.StringFrom("85"),
		FallNotices: 1,
	}
	now := date(2022, 3, 1)
	p, err := NewPace(user.User{ID: 1}, st, user.User{ID: 2}, yearGoals(), testCatalog(), now)
	if err != nil {
		t.Fatalf("NewPace: %v", err)
	}
	cal := yearCalendar()

	first := Summarize(&p, cal, now, testScale)
	second := Summarize(&p, cal, now, testScale)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("summarizing the same snapshot twice disagrees:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestSummarizeAverageShift(t *testing.T) {
	// Adding one more completed goal must pull the term average toward
	// its score, never past it. Exercised over random score sets.
	rng := rand.New(rand.NewSource(1))
	now := date(2022, 3, 1)
	cal := yearCalendar()
	catalog := testCatalog()
	st := user.Student{ID: 1, UserID: 1}

	fallGoal := func(id, seq, score int) Goal {
		day := date(2021, 10, seq)
		return Goal{
			ID: id, StudentID: 1, Sym: "alg", Seq: seq,
			Due:   null.TimeFrom(day),
			Done:  null.TimeFrom(day),
			Score: null.StringFrom(strconv.Itoa(score)),
		}
	}

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(6)
		goals := make([]Goal, 0, n+1)
		for i := 0; i < n; i++ {
			goals = append(goals, fallGoal(i+1, i+1, 50+rng.Intn(51)))
		}
		p, err := NewPace(user.User{ID: 1}, st, user.User{ID: 2}, goals, catalog, now)
		if err != nil {
			t.Fatalf("NewPace: %v", err)
		}
		base := Summarize(&p, cal, now, testScale).Fall.TestAverage
		if !base.Valid {
			t.Fatalf("trial %d: no base test average", trial)
		}

		score := 50 + rng.Intn(51)
		grown := append(append([]Goal(nil), goals...), fallGoal(n+1, n+1, score))
		p2, err := NewPace(user.User{ID: 1}, st, user.User{ID: 2}, grown, catalog, now)
		if err != nil {
			t.Fatalf("NewPace: %v", err)
		}
		next := Summarize(&p2, cal, now, testScale).Fall.TestAverage
		if !next.Valid {
			t.Fatalf("trial %d: no grown test average", trial)
		}

		switch {
		case score > base.Int && (next.Int < base.Int || next.Int > score):
			t.Errorf("trial %d: average %d + score %d gave %d; want within [%d, %d]",
				trial, base.Int, score, next.Int, base.Int, score)
		case score < base.Int && (next.Int > base.Int || next.Int < score):
			t.Errorf("trial %d: average %d + score %d gave %d; want within [%d, %d]",
				trial, base.Int, score, next.Int, score, base.Int)
		case score == base.Int && (next.Int < base.Int-1 || next.Int > base.Int+1):
			t.Errorf("trial %d: average %d + matching score gave %d", trial, base.Int, next.Int)
		}
	}
}
