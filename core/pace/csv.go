package pace

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

// GoalRow is one parsed line of a bulk goal upload, before usernames
// and course symbols are resolved against storage.
type GoalRow struct {
	Username   string
	Sym        string
	Seq        int
	Due        null.Time
	Review     bool
	Incomplete bool
}

// ParseGoalCSV reads a bulk goal upload. Columns are
// uname,sym,seq,y,m,d,rev,inc; uname, sym and the date parts default to
// the previous row's values when blank, and rev/inc are true when the
// cell has any text. Lines starting with '#' and blank lines are
// skipped. Malformed rows are collected as Problems and skipped rather
// than aborting the upload.
func ParseGoalCSV(r io.Reader) ([]GoalRow, []Problem, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var (
		rows     []GoalRow
		problems []Problem
		prev     GoalRow
		prevDate [3]string
		line     int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading goal upload")
		}
		line++

		row, date, err := goalRowFromRecord(rec, prev, prevDate)
		if err != nil {
			problems = append(problems, Problem{
				Field: fmt.Sprintf("row %d", line),
				Error: err.Error(),
			})
			continue
		}
		rows = append(rows, row)
		prev, prevDate = row, date
	}
	return rows, problems, nil
}

func goalRowFromRecord(rec []string, prev GoalRow, prevDate [3]string) (GoalRow, [3]string, error) {
	if len(rec) < 3 {
		return GoalRow{}, prevDate, errors.New("expected at least uname, sym and seq columns")
	}
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	row := GoalRow{Username: field(0), Sym: field(1)}
	if row.Username == "" {
		row.Username = prev.Username
	}
	if row.Sym == "" {
		row.Sym = prev.Sym
	}
	if row.Username == "" {
		return GoalRow{}, prevDate, errors.New("missing username")
	}
	if row.Sym == "" {
		return GoalRow{}, prevDate, errors.New("missing course symbol")
	}

	seq, err := strconv.Atoi(field(2))
	if err != nil || seq < 1 {
		return GoalRow{}, prevDate, errors.Errorf("invalid chapter number %q", field(2))
	}
	row.Seq = seq

	date := [3]string{field(3), field(4), field(5)}
	for i, part := range date {
		if part == "" {
			date[i] = prevDate[i]
		}
	}
	if date[0] != "" || date[1] != "" || date[2] != "" {
		due, err := dateFromParts(date)
		if err != nil {
			return GoalRow{}, prevDate, err
		}
		row.Due = null.TimeFrom(due)
	}

	row.Review = field(6) != ""
	row.Incomplete = field(7) != ""
	return row, date, nil
}

func dateFromParts(parts [3]string) (time.Time, error) {
	nums := [3]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, errors.Errorf("invalid date part %q", p)
		}
		nums[i] = n
	}
	t := time.Date(nums[0], time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC)
	if t.Year() != nums[0] || int(t.Month()) != nums[1] || t.Day() != nums[2] {
		return time.Time{}, errors.Errorf("no such date %d-%d-%d", nums[0], nums[1], nums[2])
	}
	return t, nil
}
