package user

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrUsernameExists  = errors.New("a user with this username already exists")
	ErrNotTeacher      = errors.New("user is not a teacher")
)

type (
	Repository interface {
		CheckUsernameUniqueness(username, email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id int) (User, error)
		GetUserByUsername(username string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsernameOrEmail(username string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(filter QueryFilter) ([]User, error)
		UpdateUser(user User, isActive *bool) (User, error)
		DeleteUsersByID(ids ...int) error

		CreateStudent(student Student) (Student, error)
		QueryAllStudents() ([]Student, error)
		QueryStudentsByTeacherID(teacherID int) ([]Student, error)
		GetStudentByUserID(userID int) (Student, error)
		UpdateStudent(student Student) (Student, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		IsActive:  true,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

// CreateStudent enrolls a new student account with its academic profile.
// A generated password is mailed to the parent when none is given.
func (svc *Service) CreateStudent(ns NewStudent) (Student, error) {
	if _, err := svc.ensureTeacher(ns.TeacherID); err != nil {
		return Student{}, err
	}

	pwd := ns.Password
	generated := pwd == ""
	if generated {
		pwd = uuid.New().String()
	}

	now := time.Now().UTC()
	usr := User{
		Name:      core.CleanString(ns.Rest + " " + ns.Last),
		Username:  ns.Username,
		Email:     ns.Email,
		IsActive:  true,
		Roles:     []string{RoleStudent},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return Student{}, err
	}
	usr, err := svc.repo.CreateUser(usr)
	if err != nil {
		return Student{}, err
	}

	std := Student{
		UserID:             usr.ID,
		Last:               ns.Last,
		Rest:               ns.Rest,
		TeacherID:          ns.TeacherID,
		ParentEmail:        ns.ParentEmail,
		FallExamFraction:   DefaultExamFraction,
		SpringExamFraction: DefaultExamFraction,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	std, err = svc.repo.CreateStudent(std)
	if err != nil {
		return Student{}, err
	}

	if generated && std.ParentEmail != "" {
		svc.sendStudentWelcomeMail(usr, std, pwd)
	}
	return std, nil
}

// ImportStudents enrolls students in bulk from a CSV upload. Rows that
// cannot be enrolled are reported and skipped; the rest go through the
// regular enrollment path, generated passwords included.
func (svc *Service) ImportStudents(r io.Reader) ([]Student, []core.FieldError, error) {
	rows, problems, err := ParseStudentCSV(r)
	if err != nil {
		return nil, nil, err
	}

	teachers := make(map[string]User)

	var created []Student
	for _, row := range rows {
		tchr, ok := teachers[row.TeacherUsername]
		if !ok {
			tchr, err = svc.repo.GetUserByUsername(row.TeacherUsername)
			if err != nil || !tchr.IsTeacher() {
				problems = append(problems, core.FieldError{
					Field: row.Username,
					Error: fmt.Sprintf("unknown teacher %q", row.TeacherUsername),
				})
				continue
			}
			teachers[row.TeacherUsername] = tchr
		}

		ns := NewStudent{
			Username:    row.Username,
			Last:        row.Last,
			Rest:        row.Rest,
			Email:       row.Email,
			ParentEmail: row.ParentEmail,
			TeacherID:   tchr.ID,
		}
		if err = ns.Validate(svc); err != nil {
			problems = append(problems, core.FieldError{Field: row.Username, Error: err.Error()})
			continue
		}
		std, err := svc.CreateStudent(ns)
		if err != nil {
			problems = append(problems, core.FieldError{Field: row.Username, Error: err.Error()})
			continue
		}
		created = append(created, std)
	}
	return created, problems, nil
}

func (svc *Service) ensureTeacher(id int) (User, error) {
	tchr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if !tchr.IsTeacher() {
		return User{}, core.NewValidationError(
			ErrNotTeacher, core.FieldError{Field: "teacher_id", Error: ErrNotTeacher.Error()})
	}
	return tchr, nil
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) QueryAllStudents() ([]Student, error) {
	return svc.repo.QueryAllStudents()
}

func (svc *Service) QueryStudentsByTeacher(teacherID int) ([]Student, error) {
	return svc.repo.QueryStudentsByTeacherID(teacherID)
}

func (svc *Service) GetByID(id int) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetStudentByUserID(userID int) (Student, error) {
	return svc.repo.GetStudentByUserID(userID)
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(core.CleanString(uname, true /* lower */))
}

func (svc *Service) Filter(filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(filter)
}

func (svc *Service) Update(id int, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Username:  uu.Username,
		Email:     uu.Email,
		Roles:     uu.Roles,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	return svc.repo.UpdateUser(usr, uu.IsActive)
}

func (svc *Service) UpdateStudent(userID int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByUserID(userID)
	if err != nil {
		return Student{}, err
	}

	if us.Last != "" {
		std.Last = us.Last
	}
	if us.Rest != "" {
		std.Rest = us.Rest
	}
	if us.ParentEmail != "" {
		std.ParentEmail = us.ParentEmail
	}
	if us.TeacherID != nil {
		if _, err = svc.ensureTeacher(*us.TeacherID); err != nil {
			return Student{}, err
		}
		std.TeacherID = *us.TeacherID
	}
	if us.FallExam != nil {
		std.FallExam.SetValid(*us.FallExam)
	}
	if us.SpringExam != nil {
		std.SpringExam.SetValid(*us.SpringExam)
	}
	if us.FallExamFraction != nil {
		std.FallExamFraction = *us.FallExamFraction
	}
	if us.SpringExamFraction != nil {
		std.SpringExamFraction = *us.SpringExamFraction
	}
	if us.FallNotices != nil {
		std.FallNotices = *us.FallNotices
	}
	if us.SpringNotices != nil {
		std.SpringNotices = *us.SpringNotices
	}
	std.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateStudent(std)
}

// SetLastLogin stamps a successful authentication.
func (svc *Service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

func (svc *Service) Delete(ids ...int) error {
	return svc.repo.DeleteUsersByID(ids...)
}

// RequestPasswordReset mails a password reset link to the account's email.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr) // mailSvc sends concurrently
	return nil
}

// ResetPassword sets a new password after verifying the emailed token.
func (svc *Service) ResetPassword(rp ResetUserPassword) (User, error) {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken, core.FieldError{Field: "uid", Error: errInvalidToken.Error()})
	}
	usr, err := svc.GetByID(uid)
	if err != nil {
		return User{}, err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	return svc.Update(usr.ID, UpdateUser{Password: rp.Password, PasswordConfirm: rp.PasswordConfirm})
}

func (svc *Service) sendPasswordResetMail(usr User) {
	token, err := MakeToken(usr)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      fmt.Sprintf("%s Password Reset", svc.conf.AppName),
			TemplateName: "password-reset",
			TemplateData: struct {
				User  User
				UID   string
				Token string
			}{usr, EncodeUID(usr), token},
		},
	)
}

func (svc *Service) sendStudentWelcomeMail(usr User, std Student, pwd string) {
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Address: std.ParentEmail}},
			Subject:      fmt.Sprintf("%s Student Account", svc.conf.AppName),
			TemplateName: "student-welcome",
			TemplateData: struct {
				Student  Student
				Username string
				Password string
			}{std, usr.Username, pwd},
		},
	)
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%d", usr.ID)))
}
