package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
)

func TestStudentSidecar(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	su, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	token := getToken(t, teacher)
	path := "/v1/students/" + itoa(su.ID) + "/sidecar"

	// an absent sidecar reads as all defaults
	req, rec := newAuthRequest(http.MethodGet, path, getToken(t, su))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var sc report.Sidecar
	if err := json.Unmarshal(rec.Body.Bytes(), &sc); err != nil {
		t.Fatalf("unmarshalling sidecar: %v", err)
	}
	if sc.StudentID != su.ID || sc.Facts.Add != report.FactNotMastered {
		t.Errorf("default sidecar = %+v", sc)
	}

	// students cannot edit their own sidecar
	req, rec = newAuthRequest(http.MethodPut, path, getToken(t, su),
		[]byte(`{"fall_complete": "done it all"}`))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)

	// invalid fact status
	req, rec = newAuthRequest(http.MethodPut, path, token, []byte(`{"facts": {"add": "z"}}`))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// invalid mastery status
	req, rec = newAuthRequest(http.MethodPut, path, token,
		[]byte(`{"mastery": [{"goal_id": 1, "status": "q"}]}`))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// teacher fills it in
	req, rec = newAuthRequest(http.MethodPut, path, token, marchallObj(t, report.UpdateSidecar{
		Facts:      &report.FactSet{Add: report.FactExcellent, Sub: report.FactMastered},
		Mastery:    []report.GoalMastery{{GoalID: 1, Status: report.Mastered}},
		FallSocial: map[string]string{"Listens well": "E"},
	}))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	req, rec = newAuthRequest(http.MethodGet, path, token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)
	if err := json.Unmarshal(rec.Body.Bytes(), &sc); err != nil {
		t.Fatalf("unmarshalling sidecar: %v", err)
	}
	if sc.Facts.Add != report.FactExcellent || sc.Facts.Sub != report.FactMastered {
		t.Errorf("Facts = %+v", sc.Facts)
	}
	if sc.MasteryOf(1) != report.Mastered {
		t.Errorf("MasteryOf(1) = %q; want %q", sc.MasteryOf(1), report.Mastered)
	}
	if sc.FallSocial["Listens well"] != "E" {
		t.Errorf("FallSocial = %+v", sc.FallSocial)
	}
}

func TestStudentReportCardAndRender(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	su, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	other, _ := createStudent(t, app.usrRepo, "student2", "Mbuyi", "Bea", teacher.ID, "")
	createCourse(t, app.courseSvc, "alg", "Algebra 1", 10)
	token := getToken(t, teacher)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	seedCalendar(t, app.paceSvc, today.AddDate(0, -1, 0), today.AddDate(0, 6, 0),
		today.AddDate(0, 2, 0), today.AddDate(0, 6, 1))

	due := today.AddDate(0, 0, -7).Format("2006-01-02")
	g := assignGoal(t, app.paceSvc, su.ID, "alg", 1, due)
	assignGoal(t, app.paceSvc, su.ID, "alg", 2, due)
	if _, err := app.paceSvc.CompleteGoal(g.ID, today.AddDate(0, 0, -7), "18/20", 1); err != nil {
		t.Fatalf("CompleteGoal() failed: %v", err)
	}

	// unknown term
	req, rec := newAuthRequest(http.MethodGet, "/v1/students/"+itoa(su.ID)+"/report/summer", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)

	// students can read their own card
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+itoa(su.ID)+"/report/fall", getToken(t, su))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var card report.Card
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("unmarshalling card: %v", err)
	}
	if card.Student != "Abe Ilunga" || card.Term != "Fall" {
		t.Errorf("card = %q / %q; want Abe Ilunga / Fall", card.Student, card.Term)
	}
	if card.Due != 2 || card.Done != 1 {
		t.Errorf("Due/Done = %d/%d; want 2/1", card.Due, card.Done)
	}

	// students cannot render
	req, rec = newAuthRequest(http.MethodPost, "/v1/students/"+itoa(su.ID)+"/report/fall/render", getToken(t, su))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/students/"+itoa(su.ID)+"/report/fall/render", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusCreated}, rec)

	var archive report.Archive
	if err := json.Unmarshal(rec.Body.Bytes(), &archive); err != nil {
		t.Fatalf("unmarshalling archive: %v", err)
	}
	wantName := "student1-fall-" + today.Format("2006-01-02") + ".pdf"
	if archive.Filename != wantName {
		t.Errorf("Filename = %q; want %q", archive.Filename, wantName)
	}
	if len(app.render.Rendered) != 1 {
		t.Fatalf("rendered %d documents; want 1", len(app.render.Rendered))
	}

	// the archive shows up in the student's list
	req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+itoa(su.ID)+"/archives", getToken(t, su))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var archives []report.Archive
	if err := json.Unmarshal(rec.Body.Bytes(), &archives); err != nil {
		t.Fatalf("unmarshalling archives: %v", err)
	}
	if len(archives) != 1 || archives[0].ID != archive.ID {
		t.Errorf("archives = %+v; want the rendered one", archives)
	}

	// download the blob
	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/archives/"+itoa(archive.ID)+"/download", getToken(t, su))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("download code = %d; want 200", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("Content-Type = %q; want application/pdf", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="`+wantName+`"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-1.4 ")) {
		t.Errorf("body does not look like a PDF: %q...", rec.Body.String()[:20])
	}

	// another student cannot download it
	req, rec = newAuthRequest(http.MethodGet, "/v1/reports/archives/"+itoa(archive.ID)+"/download", getToken(t, other))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound}, rec)
}

func TestProgressEmails(t *testing.T) {
	app := setup(t)
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	boss := createUser(t, app.usrRepo, "Boss", "theboss", "b@test.cd", "", []string{user.RoleBoss}, true)
	orphan, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	su, _ := createStudent(t, app.usrRepo, "student2", "Mbuyi", "Bea", teacher.ID, "parent@test.cd")
	createCourse(t, app.courseSvc, "alg", "Algebra 1", 10)
	token := getToken(t, teacher)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	seedCalendar(t, app.paceSvc, today.AddDate(0, -1, 0), today.AddDate(0, 6, 0),
		today.AddDate(0, 2, 0), today.AddDate(0, 6, 1))
	assignGoal(t, app.paceSvc, su.ID, "alg", 1, today.AddDate(0, 0, 7).Format("2006-01-02"))
	assignGoal(t, app.paceSvc, orphan.ID, "alg", 1, today.AddDate(0, 0, 7).Format("2006-01-02"))

	// no parent email on file
	req, rec := newAuthRequest(http.MethodPost, "/v1/students/"+itoa(orphan.ID)+"/progress-email", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/students/"+itoa(su.ID)+"/progress-email", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d emails; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if len(msg.To) != 1 || msg.To[0].Address != "parent@test.cd" {
		t.Errorf("To = %+v; want parent@test.cd", msg.To)
	}
	if msg.TemplateName != "parent-update" {
		t.Errorf("TemplateName = %q; want parent-update", msg.TemplateName)
	}

	// the bulk send is for school staff
	req, rec = newAuthRequest(http.MethodPost, "/v1/reports/progress-emails", token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)

	emailsvc.SentMessages = emailsvc.SentMessages[:0]
	req, rec = newAuthRequest(http.MethodPost, "/v1/reports/progress-emails", getToken(t, boss))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var resp ProgressEmailsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if resp.Sent != 1 {
		t.Errorf("Sent = %d; want 1", resp.Sent)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("sent %d emails; want 1", len(emailsvc.SentMessages))
	}
}
