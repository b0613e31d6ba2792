package extract

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractField pulls one value out of fragment. Missing elements resolve
// to None, or to an empty list for Multiple descriptors; they never fail.
func ExtractField(fragment *goquery.Selection, d FieldDescriptor) Value {
	if d.Selector == "" {
		if d.Attribute == "" {
			return None
		}
		attr, exists := fragment.Attr(d.Attribute)
		if !exists {
			return None
		}
		return Text(strings.TrimSpace(attr))
	}

	if d.Multiple {
		items := []string{}
		fragment.Find(d.Selector).Each(func(_ int, s *goquery.Selection) {
			if d.Attribute == "" {
				items = append(items, strings.TrimSpace(s.Text()))
				return
			}
			if attr, exists := s.Attr(d.Attribute); exists {
				items = append(items, strings.TrimSpace(attr))
			}
		})
		return List(items)
	}

	match := fragment.Find(d.Selector).First()
	if match.Length() == 0 {
		return None
	}
	if d.Attribute == "" {
		return Text(strings.TrimSpace(match.Text()))
	}
	attr, exists := match.Attr(d.Attribute)
	if !exists {
		return None
	}
	return Text(strings.TrimSpace(attr))
}

// RawRecord maps every schema field to its raw value. It is immutable once built.
type RawRecord struct {
	schema Schema
	values map[string]Value
}

// ExtractRecord applies every descriptor of schema to fragment, in order
func ExtractRecord(fragment *goquery.Selection, schema Schema) RawRecord {
	rec := RawRecord{
		schema: append(Schema(nil), schema...),
		values: make(map[string]Value, len(schema)),
	}
	for _, d := range schema {
		rec.values[d.Name] = ExtractField(fragment, d)
	}
	return rec
}

// NewRawRecord builds a record from explicit values. Fields of schema missing
// from values are set to None.
func NewRawRecord(schema Schema, values map[string]Value) RawRecord {
	rec := RawRecord{
		schema: append(Schema(nil), schema...),
		values: make(map[string]Value, len(schema)),
	}
	for _, d := range schema {
		rec.values[d.Name] = values[d.Name]
	}
	return rec
}

// Get returns the value of a field and whether the field is part of the schema
func (r RawRecord) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Text returns a field's text, or "" when absent or not a text value
func (r RawRecord) Text(name string) string {
	s, _ := r.values[name].Text()
	return s
}

// Fields returns the field names in schema order
func (r RawRecord) Fields() []string {
	return r.schema.Names()
}

// MarshalJSON encodes the record as an object keyed in schema order
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range r.schema {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[d.Name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
