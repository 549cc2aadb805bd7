package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"nimas-seat-alert/internal/models"
)

// FallbackColumn is the 0-based availability column used when no header
// starts with "availability". It matches the current course table layout
// and breaks if that layout changes.
const FallbackColumn = 6

// TableSnapshot is the data table of a rendered page, read once per lookup
type TableSnapshot struct {
	Headers []string
	Rows    [][]string
}

// ParseTable reads the header cells (table thead tr th) and body rows
// (table tbody tr, cells td) out of an HTML document.
func ParseTable(r io.Reader) (TableSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return TableSnapshot{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var snap TableSnapshot
	doc.Find("table thead tr th").Each(func(_ int, s *goquery.Selection) {
		snap.Headers = append(snap.Headers, strings.TrimSpace(s.Text()))
	})
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := []string{}
		row.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		snap.Rows = append(snap.Rows, cells)
	})
	return snap, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AvailabilityColumn returns the index of the first header starting with
// "availability", or FallbackColumn.
func (t TableSnapshot) AvailabilityColumn() int {
	for i, h := range t.Headers {
		if strings.HasPrefix(normalize(h), "availability") {
			return i
		}
	}
	return FallbackColumn
}

// Availability finds the first row whose first cell equals identifier,
// ignoring case and surrounding space, and reads the integer in its
// availability column.
func (t TableSnapshot) Availability(identifier string) (int, error) {
	target := normalize(identifier)
	col := t.AvailabilityColumn()

	for _, row := range t.Rows {
		if len(row) == 0 {
			continue
		}
		if normalize(row[0]) != target {
			continue
		}

		if col >= len(row) {
			return 0, &models.ParseError{
				Identifier: identifier,
				Err:        fmt.Errorf("%w: row has %d cells, availability column is %d", models.ErrNoIntegerInCell, len(row), col),
			}
		}
		raw := row[col]
		n, found, err := FirstInteger(raw)
		if !found {
			return 0, &models.ParseError{Identifier: identifier, Raw: raw, Err: models.ErrNoIntegerInCell}
		}
		if err != nil {
			return 0, &models.ParseError{Identifier: identifier, Raw: raw, Err: err}
		}
		return n, nil
	}

	return 0, &models.NotFoundError{Identifier: identifier, Sample: t.firstCells(sampleSize)}
}

func (t TableSnapshot) firstCells(n int) []string {
	var out []string
	for _, row := range t.Rows {
		if len(out) == n {
			break
		}
		if len(row) == 0 {
			continue
		}
		out = append(out, row[0])
	}
	return out
}
