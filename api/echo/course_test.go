package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/user"
)

func TestCourseCRUD(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.usrRepo, "Admin", "theadmin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	su, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", teacher.ID, "")
	token := getToken(t, teacher)

	newCourse := course.NewCourse{
		Sym:   "geo",
		Title: "Geometry",
		Book:  "Geometry Textbook",
		Chapters: []course.NewChapter{
			{Seq: 1, Title: "Points and Lines", Weight: 1},
			{Seq: 2, Title: "Angles", Weight: 2},
		},
	}

	// students cannot create courses
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, su), marchallObj(t, newCourse))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)

	// create
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses", token, marchallObj(t, newCourse))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusCreated}, rec)

	var crs course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
		t.Fatalf("unmarshalling course: %v", err)
	}
	if len(crs.Chapters) != 2 {
		t.Fatalf("course has %d chapters; want 2", len(crs.Chapters))
	}

	// duplicate symbol
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses", token, marchallObj(t, newCourse))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// anyone authenticated can browse the catalog
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, su))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []course.Course{crs})}, rec)

	// update
	req, rec = newAuthRequest(http.MethodPut, "/v1/courses/"+itoa(crs.ID), token,
		[]byte(`{"title": "Geometry I"}`))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
		t.Fatalf("unmarshalling course: %v", err)
	}
	if crs.Title != "Geometry I" {
		t.Errorf("Title = %q; want %q", crs.Title, "Geometry I")
	}

	// a referenced course cannot be deleted
	assignGoal(t, app.paceSvc, su.ID, "geo", 1, "")
	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+itoa(crs.ID), getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// nor a referenced chapter
	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+itoa(crs.ID)+"/chapters/1", getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)

	// an unreferenced chapter can go
	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+itoa(crs.ID)+"/chapters/2", getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNoContent}, rec)
}

func TestCourseUpload(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "t@test.cd", "", []string{user.RoleTeacher}, true)
	token := getToken(t, teacher)

	file := []byte(`title = "Algebra 1"
sym = "alg"
book = "Algebra 1 Textbook"
level = 1.0

#chapter, weight, title
1,        ,       Integers
2,        2,      Equations
3,        ,       Polynomials
`)
	req, rec := newUploadRequest(t, "/v1/courses/upload", token, "alg.txt", file)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload failed: code %d body %s", rec.Code, rec.Body.String())
	}

	var crs course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
		t.Fatalf("unmarshalling course: %v", err)
	}
	if crs.Sym != "alg" || len(crs.Chapters) != 3 {
		t.Errorf("course = %+v; want sym alg with 3 chapters", crs)
	}
	if crs.Chapters[1].Weight != 2 {
		t.Errorf("chapter 2 weight = %v; want 2", crs.Chapters[1].Weight)
	}
}
