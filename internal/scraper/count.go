package scraper

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	errNegativeCount = errors.New("negative count")
	digitRun         = regexp.MustCompile(`\d+`)
)

// stripSeparators removes thousands separators ("1,234" -> "1234")
func stripSeparators(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

// ParseCount converts a whole field value to a seat count. The value must be
// an integer once separators and surrounding spaces are removed.
func ParseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(stripSeparators(raw)))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegativeCount
	}
	return n, nil
}

// FirstInteger returns the first run of decimal digits in free text such as
// "12 seats left". It reports false when the text holds no digits.
func FirstInteger(raw string) (int, bool, error) {
	m := digitRun.FindString(stripSeparators(raw))
	if m == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, true, err
	}
	return n, true, nil
}
