// Package datetoken implements the partial timestamps used to date slides.
//
// A token is textually [-]YYYY[-MM[-DDThh[:mm[:ss]]]]. Years have no bound so
// cosmological timelines can use them; no calendar arithmetic is performed.
package datetoken

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrHierarchy is returned when a finer field is set while its parent is empty
	ErrHierarchy = errors.New("date hierarchy violation")
	// ErrInvalidComponent is returned when a date field cannot be parsed
	ErrInvalidComponent = errors.New("invalid date component")
)

var (
	yearRegex  = regexp.MustCompile(`^-?\d+$`)
	clockRegex = regexp.MustCompile(`^(\d{1,2})(?::(\d{1,2})(?::(\d{1,2}))?)?$`)
	tokenRegex = regexp.MustCompile(`^(-?)(\d+)(?:-(\d{1,2})(?:-(\d{1,2})(?:T(\d{1,2})(?::(\d{1,2})(?::(\d{1,2}))?)?)?)?)?$`)
)

// HierarchyError reports a field given without its immediate parent
type HierarchyError struct {
	Field  string
	Parent string
	Value  string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("the %s %q is set, but the %s is empty", e.Field, e.Value, e.Parent)
}

// Is makes errors.Is(err, ErrHierarchy) match
func (e *HierarchyError) Is(target error) bool { return target == ErrHierarchy }

// ComponentError reports a field whose value is not usable
type ComponentError struct {
	Field string
	Value string
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("the %s %q is invalid", e.Field, e.Value)
}

// Is makes errors.Is(err, ErrInvalidComponent) match
func (e *ComponentError) Is(target error) bool { return target == ErrInvalidComponent }

// Token is a partial timestamp. The zero value is the absent date.
type Token struct {
	Negative bool
	Year     string // digits only
	Month    string
	Day      string
	Hour     string
	Minute   string
	Second   string
}

// Compose builds a token from hierarchical fields. The clock is hh[:mm[:ss]].
// An empty year with no finer field yields the zero token.
func Compose(year, month, day, clock string) (Token, error) {
	year = strings.TrimSpace(year)
	month = strings.TrimSpace(month)
	day = strings.TrimSpace(day)
	clock = strings.TrimSpace(clock)

	switch {
	case year == "" && month != "":
		return Token{}, &HierarchyError{Field: "month", Parent: "year", Value: month}
	case month == "" && day != "":
		return Token{}, &HierarchyError{Field: "day", Parent: "month", Value: day}
	case day == "" && clock != "":
		return Token{}, &HierarchyError{Field: "time", Parent: "day", Value: clock}
	}
	if year == "" {
		return Token{}, nil
	}

	if !yearRegex.MatchString(year) {
		return Token{}, &ComponentError{Field: "year", Value: year}
	}
	t := Token{Negative: strings.HasPrefix(year, "-"), Year: strings.TrimPrefix(year, "-")}

	if month == "" {
		return t, nil
	}
	m, ok := boundedField(month, 12)
	if !ok {
		return Token{}, &ComponentError{Field: "month", Value: month}
	}
	t.Month = m

	if day == "" {
		return t, nil
	}
	d, ok := boundedField(day, 31)
	if !ok {
		return Token{}, &ComponentError{Field: "day", Value: day}
	}
	t.Day = d

	if clock == "" {
		return t, nil
	}
	parts := clockRegex.FindStringSubmatch(clock)
	if parts == nil {
		return Token{}, &ComponentError{Field: "time", Value: clock}
	}
	t.Hour = pad2(parts[1])
	t.Minute = pad2(parts[2])
	t.Second = pad2(parts[3])
	return t, nil
}

// Parse reads the canonical text form back into a token
func Parse(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Token{}, nil
	}
	m := tokenRegex.FindStringSubmatch(s)
	if m == nil {
		return Token{}, &ComponentError{Field: "date", Value: s}
	}
	return Token{
		Negative: m[1] == "-",
		Year:     m[2],
		Month:    pad2(m[3]),
		Day:      pad2(m[4]),
		Hour:     pad2(m[5]),
		Minute:   pad2(m[6]),
		Second:   pad2(m[7]),
	}, nil
}

// IsZero reports whether the token holds no date
func (t Token) IsZero() bool {
	return t.Year == ""
}

// String returns the canonical text form
func (t Token) String() string {
	if t.IsZero() {
		return ""
	}
	var b strings.Builder
	if t.Negative {
		b.WriteByte('-')
	}
	b.WriteString(t.Year)
	if t.Month == "" {
		return b.String()
	}
	b.WriteString("-" + t.Month)
	if t.Day == "" {
		return b.String()
	}
	b.WriteString("-" + t.Day)
	if t.Hour == "" {
		return b.String()
	}
	b.WriteString("T" + t.Hour)
	if t.Minute == "" {
		return b.String()
	}
	b.WriteString(":" + t.Minute)
	if t.Second == "" {
		return b.String()
	}
	b.WriteString(":" + t.Second)
	return b.String()
}

// Compare orders two tokens, see Compare
func (t Token) Compare(o Token) int {
	return Compare(t.String(), o.String())
}

// MarshalText encodes the canonical form
func (t Token) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes the canonical form
func (t *Token) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func boundedField(v string, max int) (string, bool) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return "", false
	}
	return fmt.Sprintf("%02d", n), true
}

func pad2(v string) string {
	if len(v) == 1 {
		return "0" + v
	}
	return v
}
