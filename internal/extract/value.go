package extract

import "encoding/json"

type valueKind int

const (
	kindNone valueKind = iota
	kindText
	kindList
)

// Value is a raw extracted value: nothing, a single text or an ordered list of texts
type Value struct {
	kind valueKind
	text string
	list []string
}

// None is the absent value
var None = Value{}

// Text returns a single-text value
func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

// List returns a list value. A nil slice becomes an empty list.
func List(items []string) Value {
	copied := make([]string, len(items))
	copy(copied, items)
	return Value{kind: kindList, list: copied}
}

// IsNone reports whether the value is absent
func (v Value) IsNone() bool {
	return v.kind == kindNone
}

// Text returns the text and whether the value holds one
func (v Value) Text() (string, bool) {
	return v.text, v.kind == kindText
}

// Items returns a copy of the list, or nil when the value is not a list
func (v Value) Items() []string {
	if v.kind != kindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// MarshalJSON encodes None as null, text as a string and lists as arrays
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindText:
		return json.Marshal(v.text)
	case kindList:
		return json.Marshal(v.list)
	default:
		return []byte("null"), nil
	}
}
