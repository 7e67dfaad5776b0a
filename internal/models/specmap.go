package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SpecValue is one product specification value. Categories carry
// heterogeneous attribute sets, so the value is a variant scalar:
// string, number, bool, or list of strings.
type SpecValue struct {
	Str  string
	Num  float64
	Bool bool
	List []string
	Kind SpecKind
}

// SpecKind discriminates the variant held by a SpecValue
type SpecKind int

const (
	SpecString SpecKind = iota
	SpecNumber
	SpecBool
	SpecList
)

// StringSpec builds a string-valued specification
func StringSpec(s string) SpecValue { return SpecValue{Kind: SpecString, Str: s} }

// NumberSpec builds a numeric specification
func NumberSpec(n float64) SpecValue { return SpecValue{Kind: SpecNumber, Num: n} }

// BoolSpec builds a boolean specification
func BoolSpec(b bool) SpecValue { return SpecValue{Kind: SpecBool, Bool: b} }

// ListSpec builds a list-valued specification
func ListSpec(items ...string) SpecValue { return SpecValue{Kind: SpecList, List: items} }

// MarshalJSON renders the active variant
func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SpecNumber:
		return json.Marshal(v.Num)
	case SpecBool:
		return json.Marshal(v.Bool)
	case SpecList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON detects the variant from the JSON token
func (v *SpecValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty specification value")
	}
	switch trimmed[0] {
	case '"':
		v.Kind = SpecString
		return json.Unmarshal(trimmed, &v.Str)
	case '[':
		v.Kind = SpecList
		return json.Unmarshal(trimmed, &v.List)
	case 't', 'f':
		v.Kind = SpecBool
		return json.Unmarshal(trimmed, &v.Bool)
	default:
		v.Kind = SpecNumber
		return json.Unmarshal(trimmed, &v.Num)
	}
}

type specEntry struct {
	Key   string
	Value SpecValue
}

// SpecMap is an insertion-ordered mapping of specification attribute name
// to variant value. encoding/json maps randomize key order, so it keeps
// its own entry slice and marshals as a JSON object.
type SpecMap struct {
	entries []specEntry
}

// NewSpecMap returns an empty SpecMap
func NewSpecMap() SpecMap { return SpecMap{} }

// Set inserts or replaces the value for key, preserving first-insertion order
func (m *SpecMap) Set(key string, value SpecValue) {
	for i := range m.entries {
		if m.entries[i].Key == key {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, specEntry{Key: key, Value: value})
}

// Get returns the value for key
func (m *SpecMap) Get(key string) (SpecValue, bool) {
	for _, e := range m.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return SpecValue{}, false
}

// Len returns the number of attributes
func (m *SpecMap) Len() int { return len(m.entries) }

// Keys returns attribute names in insertion order
func (m *SpecMap) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// MarshalJSON writes the entries as a JSON object in insertion order
func (m SpecMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving key order via the token stream
func (m *SpecMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("specifications: expected JSON object")
	}

	m.entries = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("specifications: non-string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var val SpecValue
		if err := json.Unmarshal(raw, &val); err != nil {
			return fmt.Errorf("specifications[%s]: %w", key, err)
		}
		m.entries = append(m.entries, specEntry{Key: key, Value: val})
	}

	_, err = dec.Token() // closing brace
	return err
}
