package cfg

import (
	"fmt"
	"sort"
	"strings"
)

// Node is one configuration tree. Sections are nested Nodes; leaves are
// scalars (string, int, float64, bool) or homogeneous []any lists.
type Node struct {
	values map[string]any
	frozen bool
}

// New returns an empty, mutable Node.
func New() *Node {
	return &Node{values: make(map[string]any)}
}

// ErrFrozen is returned by mutating operations on a frozen Node.
var ErrFrozen = fmt.Errorf("config is frozen")

// KeyError reports an access or merge against a dotted key that does not
// exist in the document.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("non-existent config key: %s", e.Key)
}

// Freeze makes the Node (and every sub-section) immutable. Configuration
// documents are consumed once per run and must not drift after validation.
func (n *Node) Freeze() {
	n.frozen = true
	for _, v := range n.values {
		if child, ok := v.(*Node); ok {
			child.Freeze()
		}
	}
}

// Frozen reports whether the Node has been frozen.
func (n *Node) Frozen() bool {
	return n.frozen
}

// Clone returns a deep, mutable copy of the Node.
func (n *Node) Clone() *Node {
	out := New()
	for k, v := range n.values {
		switch val := v.(type) {
		case *Node:
			out.values[k] = val.Clone()
		case []any:
			out.values[k] = append([]any(nil), val...)
		default:
			out.values[k] = val
		}
	}
	return out
}

// Lookup resolves a dotted key. The second return is false when any path
// element is missing.
func (n *Node) Lookup(key string) (any, bool) {
	parts := strings.Split(key, ".")
	cur := n
	for i, part := range parts {
		v, ok := cur.values[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		child, ok := v.(*Node)
		if !ok {
			return nil, false
		}
		cur = child
	}
	return nil, false
}

// Get resolves a dotted key or returns a KeyError.
func (n *Node) Get(key string) (any, error) {
	v, ok := n.Lookup(key)
	if !ok {
		return nil, &KeyError{Key: key}
	}
	return v, nil
}

// Section resolves a dotted key to a sub-section Node.
func (n *Node) Section(key string) (*Node, error) {
	v, err := n.Get(key)
	if err != nil {
		return nil, err
	}
	child, ok := v.(*Node)
	if !ok {
		return nil, fmt.Errorf("config key %s is a value, not a section", key)
	}
	return child, nil
}

// Set replaces the value at an existing dotted key, enforcing the same type
// rules as Merge. New keys cannot be introduced through Set.
func (n *Node) Set(key string, value any) error {
	if n.frozen {
		return ErrFrozen
	}
	parts := strings.Split(key, ".")
	cur := n
	for _, part := range parts[:len(parts)-1] {
		v, ok := cur.values[part]
		if !ok {
			return &KeyError{Key: key}
		}
		child, ok := v.(*Node)
		if !ok {
			return &KeyError{Key: key}
		}
		cur = child
	}
	leaf := parts[len(parts)-1]
	old, ok := cur.values[leaf]
	if !ok {
		return &KeyError{Key: key}
	}
	if _, isSection := old.(*Node); isSection {
		return fmt.Errorf("config key %s is a section and cannot be set directly", key)
	}
	coerced, err := coerceValue(key, old, value)
	if err != nil {
		return err
	}
	cur.values[leaf] = coerced
	return nil
}

// set installs a value without existence or type checks. It is used while
// constructing the defaults tree, before any user data is involved.
func (n *Node) set(key string, value any) {
	parts := strings.Split(key, ".")
	cur := n
	for _, part := range parts[:len(parts)-1] {
		v, ok := cur.values[part]
		if !ok {
			child := New()
			cur.values[part] = child
			cur = child
			continue
		}
		cur = v.(*Node)
	}
	cur.values[parts[len(parts)-1]] = value
}

// Keys returns every dotted leaf key in the document, sorted.
func (n *Node) Keys() []string {
	var keys []string
	n.walk("", func(key string, _ any) {
		keys = append(keys, key)
	})
	sort.Strings(keys)
	return keys
}

// Has reports whether the dotted key names a leaf or a section.
func (n *Node) Has(key string) bool {
	_, ok := n.Lookup(key)
	return ok
}

func (n *Node) walk(prefix string, fn func(key string, value any)) {
	for k, v := range n.values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(*Node); ok {
			child.walk(key, fn)
			continue
		}
		fn(key, v)
	}
}

// String renders the document as sorted "KEY: value" lines, mirroring how the
// external trainer dumps its effective configuration at startup.
func (n *Node) String() string {
	keys := n.Keys()
	var b strings.Builder
	for _, k := range keys {
		v, _ := n.Lookup(k)
		fmt.Fprintf(&b, "%s: %s\n", k, RenderValue(v))
	}
	return b.String()
}

// typed accessors; each fails with a descriptive error rather than a panic so
// validation can report every problem in one pass.

// GetString returns the string at key.
func (n *Node) GetString(key string) (string, error) {
	v, err := n.Get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config key %s: expected string, got %T", key, v)
	}
	return s, nil
}

// GetInt returns the integer at key.
func (n *Node) GetInt(key string) (int, error) {
	v, err := n.Get(key)
	if err != nil {
		return 0, err
	}
	i, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("config key %s: expected int, got %T", key, v)
	}
	return i, nil
}

// GetFloat returns the float at key. Integer values widen.
func (n *Node) GetFloat(key string) (float64, error) {
	v, err := n.Get(key)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	}
	return 0, fmt.Errorf("config key %s: expected float, got %T", key, v)
}

// GetBool returns the bool at key.
func (n *Node) GetBool(key string) (bool, error) {
	v, err := n.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("config key %s: expected bool, got %T", key, v)
	}
	return b, nil
}

// GetList returns the list at key.
func (n *Node) GetList(key string) ([]any, error) {
	v, err := n.Get(key)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("config key %s: expected list, got %T", key, v)
	}
	return l, nil
}

// GetStrings returns the list at key, requiring every element to be a string.
func (n *Node) GetStrings(key string) ([]string, error) {
	l, err := n.GetList(key)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(l))
	for i, e := range l {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("config key %s[%d]: expected string, got %T", key, i, e)
		}
		out[i] = s
	}
	return out, nil
}

// GetInts returns the list at key, requiring every element to be an int.
func (n *Node) GetInts(key string) ([]int, error) {
	l, err := n.GetList(key)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(l))
	for i, e := range l {
		v, ok := e.(int)
		if !ok {
			return nil, fmt.Errorf("config key %s[%d]: expected int, got %T", key, i, e)
		}
		out[i] = v
	}
	return out, nil
}
