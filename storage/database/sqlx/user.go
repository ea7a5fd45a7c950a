package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

type userRow struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
	}
}

const userCols = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	exclIDs := make(pq.Int64Array, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, int64(usr.ID))
	}

	var rows []userRow
	err := repo.db.Select(&rows,
		`SELECT username, email FROM "user" WHERE (username = $1 OR email = $2) AND NOT (id = ANY ($3))`,
		username, email, exclIDs)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, r := range rows {
		if r.Username == username {
			return user.ErrUsernameExists
		}
		if r.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	err := repo.db.QueryRow(
		`INSERT INTO "user" (name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		usr.Name, usr.Username, usr.Email, usr.IsActive, pq.StringArray(usr.Roles),
		usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, usr.LastLogin,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT `+userCols+` FROM "user" ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) GetUserByID(id int) (user.User, error) {
	return repo.getUser(`id = $1`, id)
}

func (repo *userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser(`username = $1`, username)
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getUser(`email = $1`, email)
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	return repo.getUser(`username = $1 OR email = $1`, username)
}

func (repo *userRepository) getUser(where string, args ...interface{}) (user.User, error) {
	var r userRow
	err := repo.db.Get(&r, `SELECT `+userCols+` FROM "user" WHERE `+where, args...)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	where := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		p := arg("%" + strings.ToLower(filter.Search) + "%")
		where = append(where, `(LOWER(name) LIKE `+p+` OR LOWER(username) LIKE `+p+` OR LOWER(email) LIKE `+p+`)`)
	}
	if filter.Roles != nil {
		where = append(where, `roles && `+arg(pq.StringArray(filter.Roles)))
	}
	if filter.IsActive != nil {
		where = append(where, `is_active = `+arg(*filter.IsActive))
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, `created_at >= `+arg(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, `created_at <= `+arg(filter.CreatedTo))
	}

	q := `SELECT ` + userCols + ` FROM "user"`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY id`

	var rows []userRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	set := []string{`name = $1`, `username = $2`, `email = $3`, `updated_at = $4`}
	args := []interface{}{usr.Name, usr.Username, usr.Email, usr.UpdatedAt}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if usr.Roles != nil {
		set = append(set, `roles = `+arg(pq.StringArray(usr.Roles)))
	}
	if usr.PasswordHash != nil {
		set = append(set, `password_hash = `+arg(usr.PasswordHash))
	}
	if isActive != nil {
		set = append(set, `is_active = `+arg(*isActive))
	}
	if !usr.LastLogin.IsZero() {
		set = append(set, `last_login = `+arg(usr.LastLogin))
	}

	q := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE id = ` + arg(usr.ID) + ` RETURNING ` + userCols

	var r userRow
	err := repo.db.Get(&r, q, args...)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) DeleteUsersByID(ids ...int) error {
	arr := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		arr = append(arr, int64(id))
	}
	if _, err := repo.db.Exec(`DELETE FROM "user" WHERE id = ANY ($1)`, arr); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

// ----------------------------------------------------------------------------
// students

type studentRow struct {
	ID                 int         `db:"id"`
	UserID             int         `db:"user_id"`
	Last               string      `db:"last"`
	Rest               string      `db:"rest"`
	TeacherID          int         `db:"teacher_id"`
	ParentEmail        string      `db:"parent_email"`
	FallExam           null.String `db:"fall_exam"`
	SpringExam         null.String `db:"spring_exam"`
	FallExamFraction   float64     `db:"fall_exam_fraction"`
	SpringExamFraction float64     `db:"spring_exam_fraction"`
	FallNotices        int         `db:"fall_notices"`
	SpringNotices      int         `db:"spring_notices"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (r studentRow) toStudent() user.Student {
	return user.Student{
		ID:                 r.ID,
		UserID:             r.UserID,
		Last:               r.Last,
		Rest:               r.Rest,
		TeacherID:          r.TeacherID,
		ParentEmail:        r.ParentEmail,
		FallExam:           r.FallExam,
		SpringExam:         r.SpringExam,
		FallExamFraction:   r.FallExamFraction,
		SpringExamFraction: r.SpringExamFraction,
		FallNotices:        r.FallNotices,
		SpringNotices:      r.SpringNotices,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const studentCols = `id, user_id, last, rest, teacher_id, parent_email, fall_exam, spring_exam,
	fall_exam_fraction, spring_exam_fraction, fall_notices, spring_notices, created_at, updated_at`

func (repo *userRepository) CreateStudent(std user.Student) (user.Student, error) {
	err := repo.db.QueryRow(
		`INSERT INTO student (user_id, last, rest, teacher_id, parent_email, fall_exam, spring_exam,
		                      fall_exam_fraction, spring_exam_fraction, fall_notices, spring_notices,
		                      created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		std.UserID, std.Last, std.Rest, std.TeacherID, std.ParentEmail, std.FallExam, std.SpringExam,
		std.FallExamFraction, std.SpringExamFraction, std.FallNotices, std.SpringNotices,
		std.CreatedAt, std.UpdatedAt,
	).Scan(&std.ID)
	if err != nil {
		return user.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo *userRepository) QueryAllStudents() ([]user.Student, error) {
	return repo.queryStudents(`SELECT ` + studentCols + ` FROM student ORDER BY last, rest`)
}

func (repo *userRepository) QueryStudentsByTeacherID(teacherID int) ([]user.Student, error) {
	return repo.queryStudents(`SELECT `+studentCols+` FROM student WHERE teacher_id = $1 ORDER BY last, rest`, teacherID)
}

func (repo *userRepository) queryStudents(q string, args ...interface{}) ([]user.Student, error) {
	var rows []studentRow
	if err := repo.db.Select(&rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]user.Student, len(rows))
	for i, r := range rows {
		students[i] = r.toStudent()
	}
	return students, nil
}

func (repo *userRepository) GetStudentByUserID(userID int) (user.Student, error) {
	var r studentRow
	err := repo.db.Get(&r, `SELECT `+studentCols+` FROM student WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return user.Student{}, user.ErrStudentNotFound
	}
	if err != nil {
		return user.Student{}, errors.Wrap(err, "getting student")
	}
	return r.toStudent(), nil
}

func (repo *userRepository) UpdateStudent(std user.Student) (user.Student, error) {
	var r studentRow
	err := repo.db.Get(&r,
		`UPDATE student
		 SET last = $1, rest = $2, teacher_id = $3, parent_email = $4, fall_exam = $5, spring_exam = $6,
		     fall_exam_fraction = $7, spring_exam_fraction = $8, fall_notices = $9, spring_notices = $10,
		     updated_at = $11
		 WHERE user_id = $12
		 RETURNING `+studentCols,
		std.Last, std.Rest, std.TeacherID, std.ParentEmail, std.FallExam, std.SpringExam,
		std.FallExamFraction, std.SpringExamFraction, std.FallNotices, std.SpringNotices,
		std.UpdatedAt, std.UserID)
	if err == sql.ErrNoRows {
		return user.Student{}, user.ErrStudentNotFound
	}
	if err != nil {
		return user.Student{}, errors.Wrap(err, "updating student")
	}
	return r.toStudent(), nil
}

// ----------------------------------------------------------------------------

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, len(rows))
	for i, r := range rows {
		users[i] = r.toUser()
	}
	return users
}
