package cfg

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// MergeFromFile reads a YAML document and merges it over the Node. Keys the
// Node does not already contain are rejected.
func (n *Node) MergeFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var doc map[any]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	incoming, err := normalizeMap(doc)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if err := n.mergeMap("", incoming); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// ParseFile reads a YAML document without merging defaults. The schema
// validator uses the raw form to tell "explicitly stated" apart from
// "defaulted", which Merge deliberately erases.
func ParseFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var doc map[any]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	out, err := normalizeMap(doc)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return out, nil
}

// MergeFromList merges alternating dotted key / literal value pairs, the
// format the trainer accepts after --cfg on its command line.
func (n *Node) MergeFromList(pairs []string) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("override list must hold key/value pairs, got %d items", len(pairs))
	}
	for i := 0; i < len(pairs); i += 2 {
		key, lit := pairs[i], pairs[i+1]
		value := ParseLiteral(lit)
		if err := n.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// mergeMap recursively merges normalized values into the Node.
func (n *Node) mergeMap(prefix string, incoming map[string]any) error {
	if n.frozen {
		return ErrFrozen
	}
	for k, v := range incoming {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		old, ok := n.values[k]
		if !ok {
			return &KeyError{Key: key}
		}
		childMap, incomingIsMap := v.(map[string]any)
		oldNode, oldIsSection := old.(*Node)
		switch {
		case incomingIsMap && oldIsSection:
			if err := oldNode.mergeMap(key, childMap); err != nil {
				return err
			}
		case incomingIsMap != oldIsSection:
			return fmt.Errorf("config key %s: section/value mismatch", key)
		default:
			coerced, err := coerceValue(key, old, v)
			if err != nil {
				return err
			}
			n.values[k] = coerced
		}
	}
	return nil
}

// coerceValue enforces the type of an incoming value against the existing
// one. Ints widen to floats when the default is a float; everything else must
// match exactly. List element types are not deep-checked here; the schema
// validator owns per-field element rules.
func coerceValue(key string, old, incoming any) (any, error) {
	switch old.(type) {
	case string:
		if s, ok := incoming.(string); ok {
			return s, nil
		}
	case bool:
		if b, ok := incoming.(bool); ok {
			return b, nil
		}
	case int:
		if i, ok := incoming.(int); ok {
			return i, nil
		}
	case float64:
		switch v := incoming.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case []any:
		if l, ok := incoming.([]any); ok {
			return l, nil
		}
	}
	return nil, fmt.Errorf("config key %s: cannot replace %T with %T", key, old, incoming)
}

// normalizeMap converts the yaml.v2 decoding (interface-keyed maps, raw
// numerics) into the string-keyed shape the Node works with.
func normalizeMap(in map[any]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		ks, ok := k.(string)
		if !ok {
			return nil, fmt.Errorf("non-string config key %v", k)
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", ks, err)
		}
		out[ks] = nv
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case map[any]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			ne, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case string, int, float64, bool:
		return val, nil
	case int64:
		return int(val), nil
	case nil:
		return nil, fmt.Errorf("null values are not valid hyperparameters")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
