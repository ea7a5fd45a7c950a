package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/shule/core/pace"
	"github.com/trezcool/shule/core/user"
)

func TestGoalAssignAndComplete(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	su, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	createCourse(t, app.courseSvc, "alg", "Algebra 1", 10)
	token := getToken(t, teacher)

	// students cannot manage goals
	req, rec := newAuthRequest(http.MethodPost, "/v1/goals", getToken(t, su),
		marchallObj(t, pace.NewGoal{StudentID: su.ID, Sym: "alg", Seq: 1}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)

	// unknown chapter
	req, rec = newAuthRequest(http.MethodPost, "/v1/goals", token,
		marchallObj(t, pace.NewGoal{StudentID: su.ID, Sym: "alg", Seq: 42}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// assign
	req, rec = newAuthRequest(http.MethodPost, "/v1/goals", token,
		marchallObj(t, pace.NewGoal{StudentID: su.ID, Sym: "alg", Seq: 1, Due: "2022-10-03"}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusCreated}, rec)

	var g pace.Goal
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshalling goal: %v", err)
	}
	if !g.Due.Valid || !g.Due.Time.Equal(date(2022, time.October, 3)) {
		t.Errorf("Due = %+v; want 2022-10-03", g.Due)
	}

	// duplicate assignment
	req, rec = newAuthRequest(http.MethodPost, "/v1/goals", token,
		marchallObj(t, pace.NewGoal{StudentID: su.ID, Sym: "alg", Seq: 1}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// complete without score
	req, rec = newAuthRequest(http.MethodPost, "/v1/goals/"+itoa(g.ID)+"/complete", token,
		marchallObj(t, CompleteGoalRequest{Done: "2022-10-01"}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// complete
	req, rec = newAuthRequest(http.MethodPost, "/v1/goals/"+itoa(g.ID)+"/complete", token,
		marchallObj(t, CompleteGoalRequest{Done: "2022-10-01", Score: "18/20"}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshalling goal: %v", err)
	}
	if !g.Done.Valid || g.Score.String != "18/20" || g.Tries.Int16 != 1 {
		t.Errorf("completed goal = %+v; want done with score 18/20 and 1 try", g)
	}

	// clearing done clears the score as well
	empty := ""
	req, rec = newAuthRequest(http.MethodPut, "/v1/goals/"+itoa(g.ID), token,
		marchallObj(t, pace.UpdateGoal{Done: &empty}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshalling goal: %v", err)
	}
	if g.Done.Valid || g.Score.Valid || g.Tries.Valid {
		t.Errorf("goal = %+v; want done, score and tries cleared", g)
	}

	// delete
	req, rec = newAuthRequest(http.MethodDelete, "/v1/goals/"+itoa(g.ID), token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/goals/"+itoa(g.ID), token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
}

func TestGoalImport(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	su, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	createCourse(t, app.courseSvc, "alg", "Algebra 1", 10)
	token := getToken(t, teacher)

	roster := []byte(`# fall roster
student1,alg,1,2022,9,6,,
,,2,,,13,,
nobody,alg,3,2022,9,20,,
`)
	req, rec := newUploadRequest(t, "/v1/goals/import", token, "roster.csv", roster)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import failed: code %d body %s", rec.Code, rec.Body.String())
	}

	var resp GoalImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(resp.Goals) != 2 {
		t.Errorf("imported %d goals; want 2", len(resp.Goals))
	}
	if len(resp.Problems) != 1 {
		t.Errorf("got %d problems; want 1 (unknown student)", len(resp.Problems))
	}

	goals, err := app.paceSvc.GetPace(su.ID, time.Now())
	if err != nil {
		t.Fatalf("GetPace() failed: %v", err)
	}
	if len(goals.Goals) != 2 {
		t.Errorf("student has %d goals; want 2", len(goals.Goals))
	}
}

func TestStudentSummaryAndAutopace(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	su, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	createCourse(t, app.courseSvc, "alg", "Algebra 1", 4)
	token := getToken(t, teacher)

	summaryPath := "/v1/students/" + itoa(su.ID) + "/summary"
	autopacePath := "/v1/students/" + itoa(su.ID) + "/autopace"

	// calendar not set yet
	req, rec := newAuthRequest(http.MethodGet, summaryPath, token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict}, rec)

	// a school year straddling today, so autopace has remaining days to use
	today := time.Now().UTC().Truncate(24 * time.Hour)
	seedCalendar(t, app.paceSvc,
		today.AddDate(0, -1, 0), today.AddDate(0, 6, 0),
		today.AddDate(0, 2, 0), today.AddDate(0, 6, 1))

	firstDue := today.AddDate(0, 0, -7).Format("2006-01-02")
	for seq := 1; seq <= 4; seq++ {
		assignGoal(t, app.paceSvc, su.ID, "alg", seq, firstDue)
	}

	req, rec = newAuthRequest(http.MethodPost, autopacePath, token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var p pace.Pace
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshalling pace: %v", err)
	}
	for _, g := range p.Goals {
		if !g.Due.Valid {
			t.Errorf("goal %d left undated after autopace", g.ID)
		}
	}
	days, err := app.paceSvc.SessionDays()
	if err != nil {
		t.Fatalf("SessionDays() failed: %v", err)
	}
	last := p.Goals[len(p.Goals)-1]
	if lastDay := days[len(days)-1]; !last.Due.Time.Equal(lastDay) {
		t.Errorf("last due = %v; want the last session day %v", last.Due.Time, lastDay)
	}

	req, rec = newAuthRequest(http.MethodGet, summaryPath, token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var resp PaceSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling summary: %v", err)
	}
	if resp.Summary.NScheduled != 4 {
		t.Errorf("NScheduled = %d; want 4", resp.Summary.NScheduled)
	}
}
