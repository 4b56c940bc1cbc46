package camera

import (
	"encoding/json"
	"strings"
)

// nan marks an integer flag whose input did not start with a number.
// It renders as "NaN" on the command line.
type nan struct{}

func (nan) String() string { return "NaN" }

// NaN is the value stored by integer setters for unparseable input.
var NaN = nan{}

// Params is the flag mapping: flag name to value. A value of true is a
// switch (the flag is emitted alone); anything else is emitted quoted.
// Keys keep the position of their first insertion.
type Params struct {
	keys   []string
	values map[string]any
}

// Set stores value under key.
func (p *Params) Set(key string, value any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Delete removes key. Re-adding it later appends it at the end.
func (p *Params) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i:i], p.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (p *Params) Len() int { return len(p.keys) }

// Keys returns the flag names in insertion order.
func (p *Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Reset removes every entry.
func (p *Params) Reset() {
	p.keys = nil
	p.values = nil
}

// String renders the mapping the way it appears after the binary name.
func (p *Params) String() string {
	var b strings.Builder
	for _, k := range p.keys {
		writeEntry(&b, k, p.values[k])
	}
	return strings.TrimPrefix(b.String(), " ")
}

// MarshalJSON encodes the mapping as an ordered JSON object.
func (p *Params) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		v := p.values[k]
		if _, ok := v.(nan); ok {
			v = "NaN"
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// truthy follows the loose truthiness the streaming check relies on:
// nil, false, zero, NaN and "" are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0 && t == t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case nan:
		return false
	}
	return true
}
