package user

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

// StudentRow is one parsed line of a bulk student upload, before the
// teacher username is resolved against storage.
type StudentRow struct {
	Username        string
	Last            string
	Rest            string
	Email           string
	ParentEmail     string
	TeacherUsername string
}

// ParseStudentCSV reads a bulk student upload. Columns are
// uname,last,rest,email,parent,teacher; the teacher column defaults to
// the previous row's value when blank. Lines starting with '#' and
// blank lines are skipped. Malformed rows are collected and skipped
// rather than aborting the upload.
func ParseStudentCSV(r io.Reader) ([]StudentRow, []core.FieldError, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var (
		rows     []StudentRow
		problems []core.FieldError
		prev     StudentRow
		line     int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading student upload")
		}
		line++

		row, err := studentRowFromRecord(rec, prev)
		if err != nil {
			problems = append(problems, core.FieldError{
				Field: fmt.Sprintf("row %d", line),
				Error: err.Error(),
			})
			continue
		}
		rows = append(rows, row)
		prev = row
	}
	return rows, problems, nil
}

func studentRowFromRecord(rec []string, prev StudentRow) (StudentRow, error) {
	if len(rec) < 3 {
		return StudentRow{}, errors.New("expected at least uname, last and rest columns")
	}
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	row := StudentRow{
		Username:        field(0),
		Last:            field(1),
		Rest:            field(2),
		Email:           field(3),
		ParentEmail:     field(4),
		TeacherUsername: field(5),
	}
	if row.Username == "" {
		return StudentRow{}, errors.New("missing username")
	}
	if row.Last == "" || row.Rest == "" {
		return StudentRow{}, errors.New("missing student name")
	}
	if row.TeacherUsername == "" {
		row.TeacherUsername = prev.TeacherUsername
	}
	if row.TeacherUsername == "" {
		return StudentRow{}, errors.New("missing teacher username")
	}
	return row, nil
}
