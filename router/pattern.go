package router

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// converter is a typed path segment, as in board/<int:board_id>/.
type converter struct {
	expr  string
	parse func(string) (any, error)
}

var converters = map[string]converter{
	"int":  {expr: `[0-9]+`, parse: func(s string) (any, error) { return strconv.ParseInt(s, 10, 64) }},
	"str":  {expr: `[^/]+`},
	"slug": {expr: `[-a-zA-Z0-9_]+`},
	"uuid": {expr: `[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`},
	"path": {expr: `.+`},
}

var paramName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type pathParam struct {
	name string
	conv string
}

// pattern is a declared binding path compiled to a gorilla/mux template.
type pattern struct {
	path     string
	template string
	params   []pathParam
}

// compilePattern turns "board/<int:board_id>/" into the mux template
// "/board/{board_id:[0-9]+}/". A parameter without a converter is a str.
func compilePattern(path string) (pattern, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	p := pattern{path: path}

	var b strings.Builder
	seen := make(map[string]struct{})
	rest := path
	for rest != "" {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			if err := checkLiteral(rest); err != nil {
				return pattern{}, err
			}
			b.WriteString(rest)
			break
		}
		if err := checkLiteral(rest[:open]); err != nil {
			return pattern{}, err
		}
		b.WriteString(rest[:open])

		end := strings.IndexByte(rest[open:], '>')
		if end < 0 {
			return pattern{}, fmt.Errorf("unterminated parameter in %q", path)
		}
		decl := rest[open+1 : open+end]
		rest = rest[open+end+1:]

		conv, name := "str", decl
		if i := strings.IndexByte(decl, ':'); i >= 0 {
			conv, name = decl[:i], decl[i+1:]
		}
		c, ok := converters[conv]
		if !ok {
			return pattern{}, fmt.Errorf("unknown converter %q in %q", conv, path)
		}
		if !paramName.MatchString(name) {
			return pattern{}, fmt.Errorf("invalid parameter name %q in %q", name, path)
		}
		if _, dup := seen[name]; dup {
			return pattern{}, fmt.Errorf("duplicate parameter %q in %q", name, path)
		}
		seen[name] = struct{}{}

		p.params = append(p.params, pathParam{name: name, conv: conv})
		b.WriteString("{" + name + ":" + c.expr + "}")
	}
	p.template = b.String()
	return p, nil
}

func checkLiteral(s string) error {
	if strings.ContainsAny(s, "{}>") {
		return fmt.Errorf("invalid character in path segment %q", s)
	}
	return nil
}

// values converts matched path variables to their typed values.
func (p pattern) values(vars map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(p.params))
	for _, pp := range p.params {
		raw := vars[pp.name]
		parse := converters[pp.conv].parse
		if parse == nil {
			out[pp.name] = raw
			continue
		}
		v, err := parse(raw)
		if err != nil {
			return nil, fmt.Errorf("path parameter %s: %w", pp.name, err)
		}
		out[pp.name] = v
	}
	return out, nil
}
