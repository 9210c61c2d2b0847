package flowyaml

import (
	"fmt"
	"strconv"
	"strings"
)

// Path addresses a location in a value graph as an ordered list of
// atomic keys: strings and booleans index mappings, integers index
// sequences or integer-keyed mappings, floats index float-keyed
// mappings.
type Path []interface{}

// ParsePath converts the Unix-style form "/a/b/0/c" to a Path.
// Integer-looking segments are promoted to ints; "true"/"false" to
// booleans. An empty path or "/" addresses the root.
func ParsePath(s string) Path {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	segments := strings.Split(s, "/")
	path := make(Path, 0, len(segments))
	for _, seg := range segments {
		if i, err := strconv.ParseInt(seg, 10, 64); err == nil {
			path = append(path, i)
			continue
		}
		switch seg {
		case "true":
			path = append(path, true)
		case "false":
			path = append(path, false)
		default:
			path = append(path, seg)
		}
	}
	return path
}

// String renders the path in its Unix-style form.
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p {
		b.WriteByte('/')
		fmt.Fprintf(&b, "%v", seg)
	}
	return b.String()
}

// GetAtPath walks the path from root. A missing location returns
// InvalidValue.
func (b *Builder) GetAtPath(root Value, path Path) Value {
	v := root
	for _, seg := range path {
		v = b.Get(v, normalizeKey(seg))
		if !v.IsValid() {
			return InvalidValue
		}
	}
	return v
}

// SetAtPath returns a new root with the value at the path replaced.
// Unchanged subtrees are shared; intermediate mappings are created as
// needed, and an integer component addressing a missing location
// creates a sequence.
func (b *Builder) SetAtPath(root Value, path Path, v Value) (Value, error) {
	if len(path) == 0 {
		return v, nil
	}
	return b.setAt(root, path, v)
}

func (b *Builder) setAt(cur Value, path Path, v Value) (Value, error) {
	seg := normalizeKey(path[0])
	rest := path[1:]

	resolved := b.Resolve(cur)
	switch {
	case !cur.IsValid(), resolved.Kind() == KindNull:
		// Create the intermediate container the segment calls for.
		return b.build(seg, rest, v)

	case resolved.Kind() == KindSequence:
		idx, ok := intKey(seg)
		if !ok {
			return InvalidValue, usageError(fmt.Sprintf("cannot index sequence with %v", seg))
		}
		items := b.Items(resolved)
		if idx < 0 || idx > int64(len(items)) {
			return InvalidValue, usageError(fmt.Sprintf("sequence index %d out of range", idx))
		}
		child := InvalidValue
		if idx < int64(len(items)) {
			child = items[idx]
		}
		newChild := v
		if len(rest) > 0 {
			var err error
			newChild, err = b.setAt(child, rest, v)
			if err != nil {
				return InvalidValue, err
			}
		}
		out := make([]Value, len(items), len(items)+1)
		copy(out, items)
		if idx == int64(len(items)) {
			out = append(out, newChild)
		} else {
			out[idx] = newChild
		}
		return b.Sequence(out...), nil

	case resolved.Kind() == KindMapping:
		key := b.keyValue(seg)
		pairs := b.Pairs(resolved)
		out := make([]Pair, len(pairs), len(pairs)+1)
		copy(out, pairs)
		found := -1
		for i, p := range pairs {
			if b.Equal(p.Key, key) {
				found = i
				break
			}
		}
		child := InvalidValue
		if found >= 0 {
			child = out[found].Value
		}
		newChild := v
		if len(rest) > 0 {
			var err error
			newChild, err = b.setAt(child, rest, v)
			if err != nil {
				return InvalidValue, err
			}
		}
		if found >= 0 {
			out[found].Value = newChild
		} else {
			out = append(out, Pair{Key: key, Value: newChild})
		}
		return b.Mapping(out), nil

	default:
		return InvalidValue, usageError(fmt.Sprintf("cannot descend into %v value", resolved.Kind()))
	}
}

// build creates the containers for a path through missing data: an
// integer component forces a sequence, anything else a mapping.
func (b *Builder) build(seg interface{}, rest Path, v Value) (Value, error) {
	child := v
	if len(rest) > 0 {
		var err error
		child, err = b.build(normalizeKey(rest[0]), rest[1:], v)
		if err != nil {
			return InvalidValue, err
		}
	}
	if idx, ok := intKey(seg); ok {
		if idx != 0 {
			return InvalidValue, usageError(fmt.Sprintf("cannot create sequence starting at index %d", idx))
		}
		return b.Sequence(child), nil
	}
	return b.Mapping([]Pair{{Key: b.keyValue(seg), Value: child}}), nil
}

// keyValue converts a path segment to a key value.
func (b *Builder) keyValue(seg interface{}) Value {
	switch k := seg.(type) {
	case string:
		return b.String(k)
	case int64:
		return b.Int(k)
	case int:
		return b.Int(int64(k))
	case bool:
		return b.Bool(k)
	case float64:
		return b.Float(k)
	case Value:
		return k
	}
	return InvalidValue
}

func normalizeKey(seg interface{}) interface{} {
	if i, ok := seg.(int); ok {
		return int64(i)
	}
	return seg
}
