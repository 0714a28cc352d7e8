// Package tree provides optional-chaining access to decoded JSON/YAML documents.
//
// A *Node wraps one decoded value. Every accessor is safe on a nil *Node and
// returns nil for a missing step, so deep lookups read as a single chain:
//
//	put := root.Get("activities-summary").Get("employments").Get("affiliation-group").Index(0).String()
//
// Map keys match case-insensitively with '-' and '_' treated as equal.
package tree

import (
	"sort"
	"strconv"
	"strings"
)

// Map is the nested mapping representation used for exported documents.
type Map = map[string]interface{}

// Node is one value of a decoded document. A nil *Node means "absent".
type Node struct {
	v interface{}
}

// From wraps a decoded value. It returns nil for a nil value.
func From(v interface{}) *Node {
	if v == nil {
		return nil
	}
	if n, ok := v.(*Node); ok {
		return n
	}
	return &Node{v: v}
}

// NormalizeKey lower-cases a key, trims it and maps '-' and ' ' to '_'.
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("-", "_", " ", "_").Replace(k)
}

// Missing reports whether the node is absent.
func (n *Node) Missing() bool {
	return n == nil
}

// Value returns the wrapped value, or nil when absent.
func (n *Node) Value() interface{} {
	if n == nil {
		return nil
	}
	return n.v
}

// IsMap reports whether the node is a mapping.
func (n *Node) IsMap() bool {
	if n == nil {
		return false
	}
	switch n.v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return true
	}
	return false
}

// IsList reports whether the node is a sequence.
func (n *Node) IsList() bool {
	if n == nil {
		return false
	}
	_, ok := n.v.([]interface{})
	return ok
}

// IsScalar reports whether the node is present and neither a mapping nor a sequence.
func (n *Node) IsScalar() bool {
	return n != nil && !n.IsMap() && !n.IsList()
}

// Get returns the child stored under key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil {
		return nil
	}
	switch m := n.v.(type) {
	case map[string]interface{}:
		if v, ok := m[key]; ok {
			return From(v)
		}
		want := NormalizeKey(key)
		for k, v := range m {
			if NormalizeKey(k) == want {
				return From(v)
			}
		}
	case map[interface{}]interface{}:
		want := NormalizeKey(key)
		for k, v := range m {
			if ks, ok := k.(string); ok && NormalizeKey(ks) == want {
				return From(v)
			}
		}
	}
	return nil
}

// Path follows a sequence of keys.
func (n *Node) Path(keys ...string) *Node {
	cur := n
	for _, k := range keys {
		cur = cur.Get(k)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// First returns the first present child among keys.
func (n *Node) First(keys ...string) *Node {
	for _, k := range keys {
		if c := n.Get(k); c != nil {
			return c
		}
	}
	return nil
}

// Index returns the i-th element of a sequence, or nil.
func (n *Node) Index(i int) *Node {
	if n == nil {
		return nil
	}
	l, ok := n.v.([]interface{})
	if !ok || i < 0 || i >= len(l) {
		return nil
	}
	return From(l[i])
}

// List returns the elements of a sequence. A single mapping is returned as a
// one-element list, which matches documents that collapse one-item arrays.
func (n *Node) List() []*Node {
	if n == nil {
		return nil
	}
	switch v := n.v.(type) {
	case []interface{}:
		out := make([]*Node, 0, len(v))
		for _, e := range v {
			if e != nil {
				out = append(out, From(e))
			}
		}
		return out
	case map[string]interface{}, map[interface{}]interface{}:
		return []*Node{n}
	}
	return nil
}

// Keys returns the sorted keys of a mapping.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	var keys []string
	switch m := n.v.(type) {
	case map[string]interface{}:
		for k := range m {
			keys = append(keys, k)
		}
	case map[interface{}]interface{}:
		for k := range m {
			if ks, ok := k.(string); ok {
				keys = append(keys, ks)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Lookup returns the scalar as trimmed text and whether it was present.
func (n *Node) Lookup() (string, bool) {
	if n == nil {
		return "", false
	}
	switch v := n.v.(type) {
	case string:
		return strings.TrimSpace(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// String returns the scalar as text, or "" when absent or not a scalar.
func (n *Node) String() string {
	s, _ := n.Lookup()
	return s
}

// Text reads a scalar that may be wrapped as {"value": x}.
func (n *Node) Text() string {
	if n.IsMap() {
		return n.Get("value").String()
	}
	return n.String()
}

// Bool interprets the scalar as a boolean flag.
func (n *Node) Bool() bool {
	if n == nil {
		return false
	}
	if b, ok := n.v.(bool); ok {
		return b
	}
	switch strings.ToLower(n.String()) {
	case "y", "yes", "1", "true":
		return true
	}
	return false
}

// Value wraps s as {"value": s}, or returns nil for an empty string.
func Value(s string) Map {
	if s == "" {
		return nil
	}
	return Map{"value": s}
}

// Compact removes nil and empty entries from m in place and returns it.
func Compact(m Map) Map {
	for k, v := range m {
		switch tv := v.(type) {
		case nil:
			delete(m, k)
		case string:
			if tv == "" {
				delete(m, k)
			}
		case Map:
			if len(Compact(tv)) == 0 {
				delete(m, k)
			}
		case []interface{}:
			if len(tv) == 0 {
				delete(m, k)
			}
		case []Map:
			if len(tv) == 0 {
				delete(m, k)
			}
		}
	}
	return m
}
