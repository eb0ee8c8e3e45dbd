package bluequery

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// queryValues is a decoded query string. Keys keep first-seen order.
type queryValues struct {
	keys   []string
	values map[string]Value
}

func (q *queryValues) get(name string) Value {
	if q == nil {
		return Value{}
	}
	return q.values[name]
}

// add appends value under key; the second occurrence turns a Scalar into a
// two-element List.
func (q *queryValues) add(key, value string) {
	cur, ok := q.values[key]
	if !ok {
		q.keys = append(q.keys, key)
		q.values[key] = ScalarValue(value)
		return
	}
	if s, ok := cur.Scalar(); ok {
		q.values[key] = Value{shape: List, list: []string{s, value}}
		return
	}
	cur.list = append(cur.list, value)
	q.values[key] = cur
}

// parseQuery splits raw on '&' and each segment on '='. Segments that do not
// split into exactly two parts are dropped, as are empty (decoded) values.
// When decode is set, '+' becomes a space and percent escapes are decoded; a
// value with a malformed escape, or one that decodes to invalid UTF-8, is
// dropped.
func parseQuery(raw string, decode bool) *queryValues {
	q := &queryValues{values: make(map[string]Value)}
	if raw == "" {
		return q
	}

	for _, segment := range strings.Split(raw, "&") {
		parts := strings.Split(segment, "=")
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if decode {
			v, err := url.PathUnescape(strings.ReplaceAll(value, "+", " "))
			if err != nil || !utf8.ValidString(v) {
				continue
			}
			value = v
		}
		if value == "" {
			continue
		}
		q.add(key, value)
	}
	return q
}

// componentUnescaper restores the characters encodeURIComponent leaves alone
// and writes spaces as %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent escapes s the way encodeURIComponent does: everything but
// A-Z a-z 0-9 and - _ . ! ~ * ' ( ) is percent-encoded.
func encodeComponent(s string) string {
	e := url.QueryEscape(s)
	if !strings.ContainsAny(e, "+%") {
		return e
	}
	return componentUnescaper.Replace(e)
}

// buildQuery writes name=value+separator for every value of every definition
// in registry order, then strips the one trailing separator. When encode is
// set the value is escaped; the separator never is, so the output can be
// parsed back.
func buildQuery(defs []*Definition, get func(*Definition) Value, sep string, encode bool) string {
	var buf strings.Builder
	for _, d := range defs {
		for _, v := range get(d).Strings() {
			buf.WriteString(d.Name)
			buf.WriteByte('=')
			if encode {
				v = encodeComponent(v)
			}
			buf.WriteString(v)
			buf.WriteString(sep)
		}
	}

	out := buf.String()
	if out == "" {
		return ""
	}
	return out[:len(out)-len(sep)]
}
