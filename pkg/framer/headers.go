package framer

import "strings"

// HeaderField is one name/value pair from a 220 (ARTICLE) or 221 (HEAD)
// response's inline header region. Order is preserved exactly as the
// server emitted it.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered multimap: repeated header names are allowed and
// all values are kept, in receive order.
type Headers []HeaderField

// Add appends a name/value pair.
func (h *Headers) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Get returns the first value for name (case-insensitive), if any.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value for name (case-insensitive), in order.
func (h Headers) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}
