package course

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Course represents the requirements for a single year-long course,
// almost always a chunk of chapters from a single textbook.
type Course struct {
	ID       int       `json:"id"`
	Sym      string    `json:"sym"` // unique short code
	Title    string    `json:"title"`
	Book     string    `json:"book"`
	Level    float64   `json:"level"` // buckets "general" vs "high-school"
	Chapters []Chapter `json:"chapters"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Chapter struct {
	ID       int         `json:"id"`
	CourseID int         `json:"course_id"`
	Seq      int         `json:"seq"` // unique within course
	Title    string      `json:"title"`
	Subject  null.String `json:"subject"`
	Weight   float64     `json:"weight"`
}

// Weight is the sum of all chapter weights. A goal's relative weight
// is its chapter's weight divided by this.
func (c *Course) Weight() float64 {
	var w float64
	for _, ch := range c.Chapters {
		w += ch.Weight
	}
	return w
}

// Chapter finds a chapter by its sequence number.
func (c *Course) Chapter(seq int) (Chapter, bool) {
	for _, ch := range c.Chapters {
		if ch.Seq == seq {
			return ch, true
		}
	}
	return Chapter{}, false
}

// NewCourse contains information needed to create a Course with its chapters.
type NewCourse struct {
	Sym      string       `json:"sym" validate:"required,max=10"`
	Title    string       `json:"title" validate:"required"`
	Book     string       `json:"book" validate:"required"`
	Level    float64      `json:"level" validate:"gte=0"`
	Chapters []NewChapter `json:"chapters" validate:"min=1,dive"`
}

type NewChapter struct {
	Seq     int     `json:"seq" validate:"required,gt=0"`
	Title   string  `json:"title"`
	Subject string  `json:"subject"`
	Weight  float64 `json:"weight" validate:"gte=0"`
}

func (nc *NewCourse) Validate(svc *Service) error {
	nc.Sym = core.CleanString(nc.Sym, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.Book = core.CleanString(nc.Book)

	if err := core.Validate.Struct(nc); err != nil {
		return err
	}

	seen := make(map[int]bool, len(nc.Chapters))
	for i := range nc.Chapters {
		ch := &nc.Chapters[i]
		if seen[ch.Seq] {
			return core.NewValidationError(
				ErrDuplicateChapter,
				core.FieldError{Field: "chapters", Error: fmt.Sprintf("duplicate chapter %d", ch.Seq)},
			)
		}
		seen[ch.Seq] = true
		if ch.Weight == 0 {
			ch.Weight = 1.0
		}
		if ch.Title = core.CleanString(ch.Title); ch.Title == "" {
			ch.Title = fmt.Sprintf("Chapter %d", ch.Seq)
		}
		ch.Subject = core.CleanString(ch.Subject)
	}
	return svc.CheckSymUniqueness(nc.Sym)
}

// UpdateCourse defines what may be modified on an existing Course.
// Chapters are replaced wholesale when provided.
type UpdateCourse struct {
	Title    string       `json:"title"`
	Book     string       `json:"book"`
	Level    *float64     `json:"level" validate:"omitempty,gte=0"`
	Chapters []NewChapter `json:"chapters" validate:"omitempty,dive"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Title = core.CleanString(uc.Title)
	uc.Book = core.CleanString(uc.Book)
	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	for i := range uc.Chapters {
		ch := &uc.Chapters[i]
		if ch.Weight == 0 {
			ch.Weight = 1.0
		}
		if ch.Title = core.CleanString(ch.Title); ch.Title == "" {
			ch.Title = fmt.Sprintf("Chapter %d", ch.Seq)
		}
	}
	return nil
}
