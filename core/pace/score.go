package pace

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidScore flags a score string that cannot be normalized.
var ErrInvalidScore = errors.New("invalid score")

// Scores are stored verbatim as the teacher typed them. ParseScore turns
// one into a fraction-of-one:
//
//   - "n/d" divides numerator by denominator ("18/20" -> 0.9);
//   - a plain number below 2.0 is already a fraction ("0.93" -> 0.93);
//   - 2.0 and above is a percent ("85" -> 0.85).
//
// Scores above 1.0 are possible (extra credit). Empty strings, zero
// denominators and negative values are ErrInvalidScore.
func ParseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrap(ErrInvalidScore, "empty score")
	}

	if i := strings.IndexByte(s, '/'); i >= 0 {
		num, err := strconv.ParseFloat(strings.TrimSpace(s[:i]), 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidScore, "numerator %q", s[:i])
		}
		den, err := strconv.ParseFloat(strings.TrimSpace(s[i+1:]), 64)
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidScore, "denominator %q", s[i+1:])
		}
		if den < 0.001 && den > -0.001 {
			return 0, errors.Wrap(ErrInvalidScore, "zero denominator")
		}
		frac := num / den
		if frac < 0 {
			return 0, errors.Wrapf(ErrInvalidScore, "negative score %q", s)
		}
		return frac, nil
	}

	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidScore, "not a number %q", s)
	}
	if x < 0 {
		return 0, errors.Wrapf(ErrInvalidScore, "negative score %q", s)
	}
	if x < 2.0 {
		return x, nil
	}
	return x / 100.0, nil
}

// ParseOptionalScore maps a blank score to (0, false, nil) and otherwise
// behaves like ParseScore with ok set.
func ParseOptionalScore(s string) (float64, bool, error) {
	if strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	x, err := ParseScore(s)
	if err != nil {
		return 0, false, err
	}
	return x, true, nil
}
