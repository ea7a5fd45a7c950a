package echoapi

import (
	"bytes"
	"encoding/json"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/course"
	"github.com/trezcool/shule/core/pace"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	rendersvc "github.com/trezcool/shule/services/render"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server    *Server
	db        *inmemdb.DB
	usrRepo   user.Repository
	usrSvc    *user.Service
	courseSvc *course.Service
	paceSvc   *pace.Service
	reportSvc *report.Service
	render    *rendersvc.Mock
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	pace.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	core.ParseEmailTemplates(logger)
	report.ParseTemplates(logger)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	paceRepo := inmemdb.NewPaceRepository(db)
	reportRepo := inmemdb.NewReportRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	render := new(rendersvc.Mock)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	paceSvc := pace.NewService(paceRepo, usrRepo, courseRepo, conf)
	courseSvc := course.NewService(courseRepo, paceSvc)
	reportSvc := report.NewService(reportRepo, paceSvc, usrRepo, courseRepo, render, mailSvc)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		CourseSvc:  courseSvc,
		PaceSvc:    paceSvc,
		ReportSvc:  reportSvc,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{
		server:    server,
		db:        db,
		usrRepo:   usrRepo,
		usrSvc:    usrSvc,
		courseSvc: courseSvc,
		paceSvc:   paceSvc,
		reportSvc: reportSvc,
		render:    render,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request with a single "file" field.
func newUploadRequest(t *testing.T, path, token string, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if _, err = fw.Write(content); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("newUploadRequest() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	t.Helper()

	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %s; wantData %s", rec.Body.Bytes(), tt.wantData)
	}
}

// ----------------------------------------------------------------------------
// fixtures

func createUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createStudent(
	t *testing.T,
	repo user.Repository,
	uname, last, rest string,
	teacherID int,
	parentEmail string,
) (user.User, user.Student) {
	t.Helper()

	usr := createUser(t, repo, rest+" "+last, uname, uname+"@test.cd", "", []string{user.RoleStudent}, true)
	now := time.Now().UTC()
	std, err := repo.CreateStudent(user.Student{
		UserID:             usr.ID,
		Last:               last,
		Rest:               rest,
		TeacherID:          teacherID,
		ParentEmail:        parentEmail,
		FallExamFraction:   user.DefaultExamFraction,
		SpringExamFraction: user.DefaultExamFraction,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return usr, std
}

func createCourse(t *testing.T, svc *course.Service, sym, title string, nChapters int) course.Course {
	t.Helper()

	chapters := make([]course.NewChapter, nChapters)
	for i := range chapters {
		chapters[i] = course.NewChapter{Seq: i + 1, Weight: 1}
	}
	crs, err := svc.Create(course.NewCourse{
		Sym:      sym,
		Title:    title,
		Book:     title + " Textbook",
		Chapters: chapters,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func assignGoal(t *testing.T, svc *pace.Service, studentID int, sym string, seq int, due string) pace.Goal {
	t.Helper()

	g, err := svc.AssignGoal(pace.NewGoal{
		StudentID: studentID,
		Sym:       sym,
		Seq:       seq,
		Due:       due,
	})
	if err != nil {
		t.Fatalf("assignGoal() failed: %v", err)
	}
	return g
}

// seedCalendar sets weekday session days over [from, to] plus the term divides.
func seedCalendar(t *testing.T, svc *pace.Service, from, to, fallEnd, springEnd time.Time) {
	t.Helper()

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	if err := svc.SetSessionDays(days); err != nil {
		t.Fatalf("seedCalendar() failed: %v", err)
	}
	if err := svc.SetDate(pace.DateEndFall, fallEnd); err != nil {
		t.Fatalf("seedCalendar() failed: %v", err)
	}
	if err := svc.SetDate(pace.DateEndSpring, springEnd); err != nil {
		t.Fatalf("seedCalendar() failed: %v", err)
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func itoa(i int) string { return strconv.Itoa(i) }
