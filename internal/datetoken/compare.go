package datetoken

import (
	"regexp"
	"strconv"
	"strings"
)

// fields after the year: month, day, hour, minute, second
var partsRegex = regexp.MustCompile(`^(\d+)-?(\d*)-?(\d*)T?(\d*):?(\d*):?(.*)$`)

// Compare orders two date strings field by field without calendar semantics.
//
// Negative years sort before non-negative ones and, among themselves, by
// decreasing magnitude. Only the year honours the sign: within any year
// January is before February. Past the year a missing field sorts before a
// present one and two missing fields end the comparison as equal. Strings
// that are not canonical tokens, like values read from a catalog property,
// are compared on whatever prefix matches.
func Compare(a, b string) int {
	if a == b {
		return 0
	}

	negA := strings.HasPrefix(a, "-")
	negB := strings.HasPrefix(b, "-")
	if negA && !negB {
		return -1
	}
	if !negA && negB {
		return 1
	}

	direction := 1
	if negA {
		direction = -1
		a = a[1:]
		b = b[1:]
	}

	if c := compareMagnitude(leadingYear(a), leadingYear(b)); c != 0 {
		return c * direction
	}

	partsA := fieldsAfterYear(a)
	partsB := fieldsAfterYear(b)
	for i := range partsA {
		pa, pb := partsA[i], partsB[i]
		switch {
		case pa == "" && pb == "":
			return 0
		case pa == "":
			return -1
		case pb == "":
			return 1
		}
		if c := compareField(pa, pb); c != 0 {
			return c
		}
	}
	return 0
}

func leadingYear(s string) string {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	digits := strings.TrimLeft(s[:end], "0")
	if digits == "" {
		return "0"
	}
	return digits
}

// compareMagnitude compares two digit strings without leading zeros
func compareMagnitude(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func fieldsAfterYear(s string) [5]string {
	var out [5]string
	m := partsRegex.FindStringSubmatch(s)
	if m == nil {
		return out
	}
	copy(out[:], m[2:7])
	return out
}

func compareField(a, b string) int {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
