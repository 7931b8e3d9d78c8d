package orm

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Params maps PARAM(name) placeholders to their values.
type Params map[string]any

// Ident marks a parameter value as an identifier (table or column name).
// Bind splices identifiers into the SQL text instead of binding them, so
// they must come from the server, never from user input.
type Ident string

var (
	paramPattern = regexp.MustCompile(`PARAM\(([A-Za-z_][A-Za-z0-9_]*)\)`)
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// ParamNames returns the distinct placeholder names of template in order of
// first appearance.
func ParamNames(template string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, m := range paramPattern.FindAllStringSubmatch(template, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces every PARAM(name) in template with the textual form of
// params[name]: nil becomes NULL, booleans TRUE/FALSE, anything else its
// fmt.Sprint form. Strings are not quoted.
//
// Substitute never returns partially rewritten text: every referenced name
// is checked before any replacement happens.
//
// The result is only safe to execute when every value is trusted. Use Bind
// for anything that reaches the database.
func Substitute(template string, params Params) (string, error) {
	if err := checkParams(template, params); err != nil {
		return "", err
	}
	return paramPattern.ReplaceAllStringFunc(template, func(m string) string {
		return formatValue(params[m[len("PARAM("):len(m)-1]])
	}), nil
}

// Bind rewrites every PARAM(name) in template into a "?" bind placeholder
// and returns the values in placeholder order. Ident values are written
// into the text after validation. Slices (except []byte) expand into one
// placeholder per element, so they can feed IN (...) lists.
func Bind(template string, params Params) (string, []any, error) {
	if err := checkParams(template, params); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.Grow(len(template))
	var args []any
	last := 0
	for _, loc := range paramPattern.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		name := template[loc[2]:loc[3]]
		if err := bindValue(&b, &args, name, params[name]); err != nil {
			return "", nil, err
		}
		last = loc[1]
	}
	b.WriteString(template[last:])
	return b.String(), args, nil
}

func checkParams(template string, params Params) error {
	for _, name := range ParamNames(template) {
		if _, ok := params[name]; !ok {
			return formatErrorf("invalid argument: %s is not part of the parameters", name)
		}
	}
	return nil
}

func bindValue(b *strings.Builder, args *[]any, name string, v any) error {
	switch v := v.(type) {
	case Ident:
		if !identPattern.MatchString(string(v)) {
			return formatErrorf("PARAM(%s): %q is not a valid identifier", name, string(v))
		}
		b.WriteString(string(v))
		return nil
	case []byte, nil:
		b.WriteByte('?')
		*args = append(*args, v)
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		b.WriteByte('?')
		*args = append(*args, v)
		return nil
	}
	if rv.Len() == 0 {
		return formatErrorf("PARAM(%s): empty list", name)
	}
	for i := range rv.Len() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('?')
		*args = append(*args, rv.Index(i).Interface())
	}
	return nil
}

// formatValue renders v the way Substitute and FieldRef comparisons do.
// Nil pointers render as NULL and other pointers as their target.
func formatValue(v any) string {
	if isNil(v) {
		return "NULL"
	}
	switch v := v.(type) {
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return v
	case Ident:
		return string(v)
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		return formatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v)
}

// isNil reports whether v is nil or holds a nil pointer, map, slice,
// channel or func.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
