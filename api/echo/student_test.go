package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/user"
)

func TestStudentCreate(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.usrRepo, "Admin", "theadmin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	body := func(uname string, teacherID int) []byte {
		return marchallObj(t, user.NewStudent{
			Username:  uname,
			Last:      "Mwamba",
			Rest:      "Didi",
			TeacherID: teacherID,
		})
	}

	tests := []httpTest{
		{
			name:     "teacher cannot enroll",
			token:    getToken(t, teacher),
			body:     body("student1", teacher.ID),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "teacher required",
			token:    getToken(t, admin),
			body:     body("student1", admin.ID),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "enrolled",
			token:    getToken(t, admin),
			body:     body("student1", teacher.ID),
			wantCode: http.StatusCreated,
		},
		{
			name:     "duplicate username",
			token:    getToken(t, admin),
			body:     body("student1", teacher.ID),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/students", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestStudentQueryScopedToTeacher(t *testing.T) {
	app := setup(t)

	boss := createUser(t, app.usrRepo, "Boss", "thebigboss", "boss@test.cd", "", []string{user.RoleBoss}, true)
	t1 := createUser(t, app.usrRepo, "Teacher One", "teacherone", "t1@test.cd", "", []string{user.RoleTeacher}, true)
	t2 := createUser(t, app.usrRepo, "Teacher Two", "teachertwo", "t2@test.cd", "", []string{user.RoleTeacher}, true)
	_, s1 := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", t1.ID, "")
	su2, s2 := createStudent(t, app.usrRepo, "student2", "Banza", "Zoe", t2.ID, "")

	tests := []httpTest{
		{
			name:     "boss sees all",
			token:    getToken(t, boss),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.Student{s2, s1}),
		},
		{
			name:     "teacher sees own",
			token:    getToken(t, t1),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.Student{s1}),
		},
		{
			name:     "student cannot list",
			token:    getToken(t, su2),
			wantCode: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/students", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestStudentDetailAccess(t *testing.T) {
	app := setup(t)

	t1 := createUser(t, app.usrRepo, "Teacher One", "teacherone", "t1@test.cd", "", []string{user.RoleTeacher}, true)
	t2 := createUser(t, app.usrRepo, "Teacher Two", "teachertwo", "t2@test.cd", "", []string{user.RoleTeacher}, true)
	su1, s1 := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", t1.ID, "")
	su2, _ := createStudent(t, app.usrRepo, "student2", "Banza", "Zoe", t2.ID, "")

	path := "/v1/students/" + itoa(su1.ID)

	tests := []httpTest{
		{
			name:     "own teacher",
			token:    getToken(t, t1),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, s1),
		},
		{
			name:     "self",
			token:    getToken(t, su1),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, s1),
		},
		{
			name:     "another teacher is a 404",
			token:    getToken(t, t2),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "another student is a 404",
			token:    getToken(t, su2),
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestStudentProfileUpdate(t *testing.T) {
	app := setup(t)

	t1 := createUser(t, app.usrRepo, "Teacher One", "teacherone", "t1@test.cd", "", []string{user.RoleTeacher}, true)
	su1, _ := createStudent(t, app.usrRepo, "student1", "Ilunga", "Abe", t1.ID, "")

	path := "/v1/students/" + itoa(su1.ID)
	exam := "85"
	frac := 0.25
	notices := 2

	tests := []httpTest{
		{
			name:     "student cannot edit own profile",
			token:    getToken(t, su1),
			body:     marchallObj(t, user.UpdateStudent{FallExam: &exam}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "bad exam score",
			token:    getToken(t, t1),
			body:     []byte(`{"fall_exam": "n/a"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:  "teacher records semester facts",
			token: getToken(t, t1),
			body: marchallObj(t, user.UpdateStudent{
				FallExam:         &exam,
				FallExamFraction: &frac,
				FallNotices:      &notices,
			}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	std, err := app.usrSvc.GetStudentByUserID(su1.ID)
	if err != nil {
		t.Fatalf("GetStudentByUserID() failed: %v", err)
	}
	if !std.FallExam.Valid || std.FallExam.String != exam {
		t.Errorf("FallExam = %+v; want %q", std.FallExam, exam)
	}
	if std.FallExamFraction != frac {
		t.Errorf("FallExamFraction = %v; want %v", std.FallExamFraction, frac)
	}
	if std.FallNotices != notices {
		t.Errorf("FallNotices = %v; want %v", std.FallNotices, notices)
	}
}

func TestStudentUpload(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.usrRepo, "Admin", "theadmin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	roster := []byte(`# uname, last, rest, email, parent, teacher
student1, Ilunga, Abe, , parent1@test.cd, theteacher
student2, Mbuyi,  Bea, bea@test.cd, ,
student3, Kalala, Cole, , , nobody
`)

	// teachers cannot bulk-enroll
	req, rec := newUploadRequest(t, "/v1/students/upload", getToken(t, teacher), "students.csv", roster)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden}, rec)

	req, rec = newUploadRequest(t, "/v1/students/upload", getToken(t, admin), "students.csv", roster)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK}, rec)

	var resp StudentImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(resp.Students) != 2 {
		t.Fatalf("enrolled %d students; want 2", len(resp.Students))
	}
	if len(resp.Problems) != 1 || resp.Problems[0].Field != "student3" {
		t.Errorf("Problems = %+v; want one for student3", resp.Problems)
	}
	for _, std := range resp.Students {
		if std.TeacherID != teacher.ID {
			t.Errorf("TeacherID = %d; want %d", std.TeacherID, teacher.ID)
		}
	}
	if resp.Students[0].FullName() != "Abe Ilunga" {
		t.Errorf("FullName() = %q; want Abe Ilunga", resp.Students[0].FullName())
	}

	// missing file field
	req, rec = newAuthRequest(http.MethodPost, "/v1/students/upload", getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest}, rec)
}
