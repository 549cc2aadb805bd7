package scraper

import "nimas-seat-alert/internal/models"

// Field names used by the availability API rows
const (
	FieldSerialNo       = "Serial No"
	FieldAvailableSeats = "Available Seats"
)

// ExtractRecords pulls the row records out of an API response shaped as
// {"response": {"records": [[{"name": ..., "value": ...}, ...], ...]}}.
// Missing or mis-shaped parts yield an empty set, never an error. Rows that
// are not lists and entries that are not name/value objects are skipped.
func ExtractRecords(resp models.Value) models.RecordSet {
	inner, ok := resp.Get("response")
	if !ok {
		return models.RecordSet{}
	}
	recs, ok := inner.Get("records")
	if !ok {
		return models.RecordSet{}
	}
	rows, ok := recs.Items()
	if !ok {
		return models.RecordSet{}
	}

	out := make(models.RecordSet, 0, len(rows))
	for _, row := range rows {
		entries, ok := row.Items()
		if !ok {
			continue
		}
		out = append(out, toRecord(entries))
	}
	return out
}

func toRecord(entries []models.Value) models.Record {
	rec := make(models.Record, 0, len(entries))
	for _, entry := range entries {
		nameVal, ok := entry.Get("name")
		if !ok {
			continue
		}
		name, ok := nameVal.Str()
		if !ok {
			continue
		}
		// an entry without "value" reads as null, like a missing key in the feed
		value, _ := entry.Get("value")
		rec = append(rec, models.Field{Name: name, Value: value})
	}
	return rec
}
