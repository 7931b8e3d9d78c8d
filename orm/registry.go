package orm

import (
	"maps"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
)

// Registry maps (database, model) pairs to physically namespaced table
// names of the form "app_model".
//
// Registration normally happens once at startup, but a Registry is safe
// for concurrent use, so registering while queries resolve does not
// corrupt it.
type Registry struct {
	mu     sync.RWMutex
	models map[string]map[string]string   // database -> model -> table
	tables map[string]map[string]struct{} // database -> table
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]map[string]string),
		tables: make(map[string]map[string]struct{}),
	}
}

// RegisterModel records model under database and returns its physical
// table name, "{app}_{model}" in lower case.
func (r *Registry) RegisterModel(database, app, model string) string {
	model = strings.ToLower(model)
	table := strings.ToLower(app) + "_" + model

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.models[database] == nil {
		r.models[database] = make(map[string]string)
		r.tables[database] = make(map[string]struct{})
	}
	r.models[database][model] = table
	r.tables[database][table] = struct{}{}
	return table
}

// Register records the model type T under database and app.
// The model name comes from ResolveModelName.
//
//	orm.Register[Board](reg, "default", "core") // → "core_board"
func Register[T any](r *Registry, database, app string) string {
	return r.RegisterModel(database, app, ResolveModelName[T]())
}

// Resolve returns the physical table name for model in database.
// The lookup is case-insensitive. A registered physical name resolves to
// itself, and a plural model name falls back to its singular form.
func (r *Registry) Resolve(database, model string) (string, error) {
	name := strings.ToLower(model)

	r.mu.RLock()
	defer r.mu.RUnlock()
	models, ok := r.models[database]
	if !ok {
		return "", &ModelNotFoundError{Database: database, Model: model}
	}
	if table, ok := models[name]; ok {
		return table, nil
	}
	if _, ok := r.tables[database][name]; ok {
		return name, nil
	}
	if table, ok := models[inflection.Singular(name)]; ok {
		return table, nil
	}
	return "", &ModelNotFoundError{Database: database, Model: model}
}

// Models returns a copy of the model -> table mapping of database.
func (r *Registry) Models(database string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.models[database])
}

// Expand rewrites every registry token in query through Resolve.
// A token is a word of the form _name_, optionally followed by .field, or
// _name_field, which renders as table.field. Single-quoted string literals
// and comments are copied untouched.
func (r *Registry) Expand(database, query string) (string, error) {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'':
			j := skipLiteral(query, i)
			b.WriteString(query[i:j])
			i = j
		case c == '-' || c == '/':
			j := skipComment(query, i)
			if j == i {
				j++
			}
			b.WriteString(query[i:j])
			i = j
		case isIdentByte(c):
			j := i
			for j < len(query) && isIdentByte(query[j]) {
				j++
			}
			word := query[i:j]
			switch {
			case isToken(word):
				table, err := r.Resolve(database, word[1:len(word)-1])
				if err != nil {
					return "", err
				}
				word = table
			case isFieldToken(word):
				ref, err := r.resolveField(database, word[1:])
				if err != nil {
					return "", err
				}
				word = ref
			}
			b.WriteString(word)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// resolveField splits name_field at the rightmost underscore whose prefix
// Resolve knows, so the longest model name wins.
func (r *Registry) resolveField(database, body string) (string, error) {
	for k := strings.LastIndexByte(body, '_'); k > 0; k = strings.LastIndexByte(body[:k], '_') {
		if k == len(body)-1 {
			continue
		}
		if table, err := r.Resolve(database, body[:k]); err == nil {
			return table + "." + body[k+1:], nil
		}
	}
	model, _, _ := strings.Cut(body, "_")
	return "", &ModelNotFoundError{Database: database, Model: model}
}

// skipComment returns the index just past the comment opening at i, or i
// when none opens there.
func skipComment(s string, i int) int {
	switch {
	case strings.HasPrefix(s[i:], "--"):
		if j := strings.IndexByte(s[i:], '\n'); j >= 0 {
			return i + j
		}
		return len(s)
	case strings.HasPrefix(s[i:], "/*"):
		if j := strings.Index(s[i+2:], "*/"); j >= 0 {
			return i + 2 + j + 2
		}
		return len(s)
	}
	return i
}

// skipLiteral returns the index just past the string literal opening at i.
// Doubled quotes are escapes.
func skipLiteral(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != '\'' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '\'' {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isToken(s string) bool {
	if len(s) < 3 || s[0] != '_' || s[len(s)-1] != '_' || !isLetter(s[1]) {
		return false
	}
	for i := range len(s) {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

// isFieldToken reports whether s has the shape _name_field.
func isFieldToken(s string) bool {
	if len(s) < 4 || s[0] != '_' || !isLetter(s[1]) || s[len(s)-1] == '_' {
		return false
	}
	return strings.IndexByte(s[2:], '_') >= 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
