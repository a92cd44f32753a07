package bsqlite

import (
	"reflect"
)

// bindKind classifies the shape of a normalized parameter set.
type bindKind uint8

const (
	bindNone   bindKind = iota // no parameters
	bindSingle                 // one positional value (scalar, []byte, slice, ...)
	bindList                   // two or more positional values, in caller order
	bindNamed                  // a single string-keyed map, keys carrying a prefix
)

// boundParams is the normalized parameter set handed to the engine's bind
// step. It is a tagged union: exactly one of single/list/named is meaningful
// depending on kind. Instances are transient; they are built once per call
// and consumed by a single bind-and-execute.
type boundParams struct {
	kind   bindKind
	single any
	list   []any
	named  map[string]any
}

// normalizeParams converts the raw argument list of an All/Get/Run call into
// the shape the underlying binding expects:
//   - no arguments → no parameters
//   - one string-keyed map → named parameters; keys that do not already start
//     with '@', '$' or ':' get prefix prepended
//   - one argument of any other shape → a single positional value, untouched
//   - several arguments → positional values in the original order
//
// No placeholder/argument count checking happens here; mismatches surface as
// errors from the engine.
func normalizeParams(prefix byte, args []any) boundParams {
	switch len(args) {
	case 0:
		return boundParams{kind: bindNone}
	case 1:
		if m, ok := namedMap(args[0]); ok {
			return boundParams{kind: bindNamed, named: prefixKeys(prefix, m)}
		}
		return boundParams{kind: bindSingle, single: args[0]}
	default:
		return boundParams{kind: bindList, list: args}
	}
}

// namedMap reports whether in is a string-keyed map usable as a named
// parameter set, returning its entries as map[string]any.
// []byte and other slices never match (reflect.Map only).
func namedMap(in any) (map[string]any, bool) {
	// FAST-PATH: map[string]any
	if m, ok := in.(map[string]any); ok {
		return m, true
	}
	v := reflect.ValueOf(in)
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// prefixKeys rewrites bare keys to carry prefix. Keys that already start
// with a placeholder prefix pass through unchanged, even when that prefix
// differs from the detected one.
func prefixKeys(prefix byte, in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if k != "" && isPlaceholderPrefix(k[0]) {
			out[k] = v
			continue
		}
		out[string(prefix)+k] = v
	}
	return out
}

// --------------------------------
// Prefix detection
// --------------------------------

// defaultPrefix is used when the SQL text contains no named placeholder.
const defaultPrefix = '@'

// detectPrefix scans SQL text for the first named placeholder token
// (@name, $name or :name) and returns its prefix byte, or defaultPrefix if
// none is found. The scan walks a small state machine so prefix characters
// inside string literals, quoted identifiers and comments are never taken
// for placeholders, and '::' casts are skipped.
func detectPrefix(q string) byte {
	const (
		sText = iota
		sSQ   // '...'
		sDQ   // "..."
		sBT   // `...`
		sLC   // line comment --
		sBC   // block comment /* ... */
	)
	state := sText

	for i := 0; i < len(q); i++ {
		c := q[i]

		switch state {
		case sText:
			if c == '-' && i+1 < len(q) && q[i+1] == '-' {
				state = sLC
				i++
				continue
			}
			if c == '/' && i+1 < len(q) && q[i+1] == '*' {
				state = sBC
				i++
				continue
			}
			switch c {
			case '\'':
				state = sSQ
				continue
			case '"':
				state = sDQ
				continue
			case '`':
				state = sBT
				continue
			}
			if !isPlaceholderPrefix(c) {
				continue
			}
			// Not a placeholder: '::' cast or ':' glued to a previous ':'
			if c == ':' && ((i+1 < len(q) && q[i+1] == ':') || (i > 0 && q[i-1] == ':')) {
				continue
			}
			if i+1 < len(q) && isAlphaUnderscore(q[i+1]) {
				return c
			}

		case sSQ:
			if c == '\'' {
				if i+1 < len(q) && q[i+1] == '\'' {
					i++ // escaped quote
					continue
				}
				state = sText
			}

		case sDQ:
			if c == '"' {
				if i+1 < len(q) && q[i+1] == '"' {
					i++
					continue
				}
				state = sText
			}

		case sBT:
			if c == '`' {
				if i+1 < len(q) && q[i+1] == '`' {
					i++
					continue
				}
				state = sText
			}

		case sLC:
			if c == '\n' || c == '\r' {
				state = sText
			}

		case sBC:
			if c == '*' && i+1 < len(q) && q[i+1] == '/' {
				i++
				state = sText
			}
		}
	}
	return defaultPrefix
}

// isPlaceholderPrefix reports whether b is one of the three supported
// named-placeholder prefixes.
func isPlaceholderPrefix(b byte) bool {
	return b == '@' || b == '$' || b == ':'
}

// isAlphaUnderscore reports whether b is [A-Za-z_] .
func isAlphaUnderscore(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}
