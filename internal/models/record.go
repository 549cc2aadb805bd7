package models

// Field is one name/value entry of a row record
type Field struct {
	Name  string
	Value Value
}

// Record is one row returned by the availability API
type Record []Field

// ValueOf returns the value of the first field named name. Later fields with
// the same name are ignored.
func (r Record) ValueOf(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// RecordSet is the ordered list of rows from one API call
type RecordSet []Record

// Sample returns the text of field for at most n leading records, in order.
// Records without the field are reported as "<absent>".
func (rs RecordSet) Sample(field string, n int) []string {
	if n > len(rs) {
		n = len(rs)
	}
	if n < 0 {
		n = 0
	}
	out := make([]string, 0, n)
	for _, rec := range rs[:n] {
		v, ok := rec.ValueOf(field)
		if !ok {
			out = append(out, "<absent>")
			continue
		}
		out = append(out, v.Text())
	}
	return out
}
