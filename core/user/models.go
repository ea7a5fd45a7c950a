package user

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Boss supervises teachers and students school-wide.
	RoleBoss = "boss:"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner}
	BossRoles    = []string{RoleBoss}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Bosses: 20 - 16
		RoleBoss: 16,

		// Teachers: 15 - 11
		RoleTeacher: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Boss", Value: RoleBoss},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, BossRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsBoss() bool {
	return u.RoleStartsWith(RoleBoss)
}

func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// Student holds the academic profile attached to a User with RoleStudent.
// Semester exam scores and notice counts feed the pace and report computations.
type Student struct {
	ID          int    `json:"id"`
	UserID      int    `json:"user_id"`
	Last        string `json:"last"` // family name, used for report sorting
	Rest        string `json:"rest"` // remaining names
	TeacherID   int    `json:"teacher_id"`
	ParentEmail string `json:"parent_email"`

	FallExam           null.String  `json:"fall_exam"`   // raw score string
	SpringExam         null.String  `json:"spring_exam"` // raw score string
	FallExamFraction   float64      `json:"fall_exam_fraction"`
	SpringExamFraction float64      `json:"spring_exam_fraction"`
	FallNotices        int          `json:"fall_notices"`
	SpringNotices      int          `json:"spring_notices"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// DefaultExamFraction is the weight of a semester exam in the semester
// grade when the profile does not override it.
const DefaultExamFraction = 0.2

// FullName renders the display name, family name last.
func (s Student) FullName() string {
	return strings.TrimSpace(s.Rest + " " + s.Last)
}

// ExamFraction returns the exam weight for a term, falling back to the default.
func (s *Student) ExamFraction(spring bool) float64 {
	frac := s.FallExamFraction
	if spring {
		frac = s.SpringExamFraction
	}
	if frac <= 0 {
		return DefaultExamFraction
	}
	return frac
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, svc *Service) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

// NewStudent contains information needed to enroll a new Student.
// When Password is empty a random one is generated and the account
// credentials are mailed to the parent.
type NewStudent struct {
	Username    string `json:"username" validate:"required,min=6,alphanum_"`
	Last        string `json:"last" validate:"required"`
	Rest        string `json:"rest" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	TeacherID   int    `json:"teacher_id" validate:"required"`
	Password    string `json:"password" validate:"omitempty"`
}

func (ns *NewStudent) Validate(svc *Service) error {
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	ns.Last = core.CleanString(ns.Last)
	ns.Rest = core.CleanString(ns.Rest)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)

	if err := core.Validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckUniqueness(ns.Username, ns.Email)
}

// UpdateStudent defines what may be modified on an existing Student profile.
type UpdateStudent struct {
	Last        string `json:"last"`
	Rest        string `json:"rest"`
	ParentEmail string `json:"parent_email" validate:"omitempty,email"`
	TeacherID   *int   `json:"teacher_id"`

	FallExam           *string  `json:"fall_exam" validate:"omitempty,score"`
	SpringExam         *string  `json:"spring_exam" validate:"omitempty,score"`
	FallExamFraction   *float64 `json:"fall_exam_fraction" validate:"omitempty,gt=0,lte=1"`
	SpringExamFraction *float64 `json:"spring_exam_fraction" validate:"omitempty,gt=0,lte=1"`
	FallNotices        *int     `json:"fall_notices" validate:"omitempty,gte=0"`
	SpringNotices      *int     `json:"spring_notices" validate:"omitempty,gte=0"`
}

func (us *UpdateStudent) Validate() error {
	us.Last = core.CleanString(us.Last)
	us.Rest = core.CleanString(us.Rest)
	us.ParentEmail = core.CleanString(us.ParentEmail, true /* lower */)
	return core.Validate.Struct(us)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate() error { return core.Validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
