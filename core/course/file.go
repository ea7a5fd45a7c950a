package course

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Course files are a TOML header (title, sym, book, level) separated from a
// CSV chapter table by at least one blank line:
//
//	title = "Core Precalculus"
//	sym = "pc"
//	book = "Precalculus: Functions and Graphs"
//	level = 12.1
//
//	#chapter, weight, title,     subject
//	1,        8,      Chapter 1, Topics from Algebra
//	2,        9,      Chapter 2, Graphs and Functions
//
// Weights default to 1.0, titles to "Chapter N", subjects to nothing.

// ParseFile reads a course file into a NewCourse.
func ParseFile(r io.Reader) (NewCourse, error) {
	head, body, err := splitHeaderBody(r)
	if err != nil {
		return NewCourse{}, err
	}

	v := viper.New()
	v.SetConfigType("toml")
	if err = v.ReadConfig(strings.NewReader(head)); err != nil {
		return NewCourse{}, errors.Wrap(err, "parsing course header")
	}
	nc := NewCourse{
		Sym:   v.GetString("sym"),
		Title: v.GetString("title"),
		Book:  v.GetString("book"),
		Level: v.GetFloat64("level"),
	}

	cr := csv.NewReader(strings.NewReader(body))
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	for n := 1; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return NewCourse{}, errors.Wrap(err, "parsing chapter table")
		}
		if isBlankRecord(rec) {
			continue
		}
		ch, err := chapterFromRecord(rec)
		if err != nil {
			return NewCourse{}, errors.Wrapf(err, "chapter table record %d", n)
		}
		nc.Chapters = append(nc.Chapters, ch)
	}
	if len(nc.Chapters) == 0 {
		return NewCourse{}, errors.New("course file has no chapters")
	}
	return nc, nil
}

// splitHeaderBody splits the file at the first blank line following the
// TOML header. Leading blank lines are skipped.
func splitHeaderBody(r io.Reader) (head, body string, err error) {
	var headB, bodyB bytes.Buffer
	inHead := false
	headDone := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		blank := strings.TrimSpace(line) == ""

		switch {
		case headDone:
			bodyB.WriteString(line)
			bodyB.WriteByte('\n')
		case !inHead && blank:
			// leading blanks
		case !inHead:
			inHead = true
			headB.WriteString(line)
			headB.WriteByte('\n')
		case blank:
			headDone = true
		default:
			headB.WriteString(line)
			headB.WriteByte('\n')
		}
	}
	if err = scanner.Err(); err != nil {
		return "", "", errors.Wrap(err, "reading course file")
	}
	if headB.Len() == 0 {
		return "", "", errors.New("course file has no header")
	}
	if bodyB.Len() == 0 {
		return "", "", errors.New("course file has no chapter table")
	}
	return headB.String(), bodyB.String(), nil
}

func chapterFromRecord(rec []string) (NewChapter, error) {
	var ch NewChapter

	seqStr := strings.TrimSpace(field(rec, 0))
	seq, err := strconv.Atoi(seqStr)
	if err != nil {
		return ch, fmt.Errorf("%q is not a chapter number", seqStr)
	}
	ch.Seq = seq

	ch.Weight = 1.0
	if w := strings.TrimSpace(field(rec, 1)); w != "" {
		weight, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return ch, fmt.Errorf("%q is not a valid weight (hint: try a decimal number, like \"1\" or \"3.5\")", w)
		}
		ch.Weight = weight
	}

	ch.Title = strings.TrimSpace(field(rec, 2))
	if ch.Title == "" {
		ch.Title = fmt.Sprintf("Chapter %d", seq)
	}
	ch.Subject = strings.TrimSpace(field(rec, 3))
	return ch, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
