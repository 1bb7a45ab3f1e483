package events

import (
	"bytes"
	"encoding/json"
)

// Field is a name accepted by the list filter parameter.
type Field string

const (
	FieldID       Field = "id"
	FieldName     Field = "name"
	FieldDate     Field = "date"
	FieldFrom     Field = "from"
	FieldTo       Field = "to"
	FieldLocation Field = "location"
)

// AllFields lists every filterable field.
var AllFields = []Field{FieldID, FieldName, FieldDate, FieldFrom, FieldTo, FieldLocation}

type projection struct {
	columns []Column
	value   func(Event) any
}

var projections = map[Field]projection{
	FieldID: {
		columns: []Column{ColumnID},
		value:   func(e Event) any { return e.ID },
	},
	FieldName: {
		columns: []Column{ColumnName},
		value:   func(e Event) any { return e.Name },
	},
	FieldDate: {
		columns: []Column{ColumnFromTime},
		value:   func(e Event) any { return e.From.Format(DateLayout) },
	},
	FieldFrom: {
		columns: []Column{ColumnFromTime},
		value:   func(e Event) any { return e.From.Format(TimeLayout) },
	},
	FieldTo: {
		columns: []Column{ColumnToTime},
		value:   func(e Event) any { return e.To.Format(TimeLayout) },
	},
	FieldLocation: {
		columns: []Column{ColumnStreet, ColumnSuburb, ColumnState, ColumnPostCode},
		value:   func(e Event) any { return e.Location },
	},
}

// Project renders e with only the requested fields, in the requested order.
func Project(e Event, fields []Field) Record {
	record := Record{}
	for _, field := range fields {
		record.Set(string(field), projections[field].value(e))
	}
	return record
}

// Record is a JSON object that keeps insertion order when marshalled.
type Record struct {
	keys   []string
	values map[string]any
}

func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r Record) Get(key string) (any, bool) {
	value, ok := r.values[key]
	return value, ok
}

func (r Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r Record) Len() int {
	return len(r.keys)
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
