package pace

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// school every Mon-Thu for a few weeks around the new year
func testCalendar() Calendar {
	days := []time.Time{
		date(2021, 12, 13), date(2021, 12, 14), date(2021, 12, 15), date(2021, 12, 16),
		date(2022, 1, 3), date(2022, 1, 4), date(2022, 1, 5), date(2022, 1, 6),
		date(2022, 1, 10), date(2022, 1, 11), date(2022, 1, 12), date(2022, 1, 13),
	}
	return NewCalendar(days, date(2022, 1, 1), date(2022, 6, 1))
}

func TestCalendarTermOf(t *testing.T) {
	cal := testCalendar()

	tests := []struct {
		name    string
		in      time.Time
		want    Term
		wantErr bool
	}{
		{name: "Fall", in: date(2021, 12, 15), want: Fall},
		{name: "Spring", in: date(2022, 1, 4), want: Spring},
		{name: "FirstDay", in: date(2021, 12, 13), want: Fall},
		{name: "LastDay", in: date(2022, 1, 13), want: Spring},
		{name: "NonSessionDayInRange", in: date(2021, 12, 25), want: Fall},
		{name: "BeforeYear", in: date(2021, 9, 1), wantErr: true},
		{name: "AfterYear", in: date(2022, 6, 15), wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cal.TermOf(tc.in)
			if tc.wantErr {
				if errors.Cause(err) != ErrOutOfRange {
					t.Fatalf("error = %v; want ErrOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("TermOf(%s) = %v; want %v", tc.in.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestCalendarRemainingFrom(t *testing.T) {
	cal := testCalendar()

	rem, err := cal.RemainingFrom(date(2022, 1, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rem) != 7 {
		t.Fatalf("got %d days; want 7", len(rem))
	}
	if !rem[0].Equal(date(2022, 1, 5)) {
		t.Errorf("first day = %s; want 2022-01-05", rem[0].Format("2006-01-02"))
	}
	if !rem[len(rem)-1].Equal(date(2022, 1, 13)) {
		t.Errorf("last day = %s; want 2022-01-13", rem[len(rem)-1].Format("2006-01-02"))
	}

	// a non-session day yields the next session day first
	rem, err = cal.RemainingFrom(date(2021, 12, 20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rem[0].Equal(date(2022, 1, 3)) {
		t.Errorf("first day = %s; want 2022-01-03", rem[0].Format("2006-01-02"))
	}

	if _, err = cal.RemainingFrom(date(2022, 8, 1)); errors.Cause(err) != ErrOutOfRange {
		t.Errorf("error = %v; want ErrOutOfRange", err)
	}
}

func TestCalendarSortsDays(t *testing.T) {
	days := []time.Time{date(2022, 1, 10), date(2021, 12, 13), date(2022, 1, 3)}
	cal := NewCalendar(days, date(2022, 1, 1), date(2022, 6, 1))
	got := cal.Days()
	for i := 1; i < len(got); i++ {
		if got[i].Before(got[i-1]) {
			t.Fatalf("days not sorted: %v", got)
		}
	}
	// the caller's slice is left alone
	if !days[0].Equal(date(2022, 1, 10)) {
		t.Error("NewCalendar mutated its input")
	}
}
