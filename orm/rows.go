package orm

// Rows is a fully materialised result set. Each row holds the column
// values in the order of Columns. An empty result is a Rows with no
// values, never an error.
type Rows struct {
	Columns []string `json:"columns"`
	Values  [][]any  `json:"values"`
}

// Len returns the number of rows.
func (r Rows) Len() int { return len(r.Values) }

// Empty reports whether the result has no rows.
func (r Rows) Empty() bool { return len(r.Values) == 0 }

// First returns the first row.
func (r Rows) First() ([]any, bool) {
	if len(r.Values) == 0 {
		return nil, false
	}
	return r.Values[0], true
}

// Column returns every value of the named column, or nil when the result
// has no such column.
func (r Rows) Column(name string) []any {
	idx := -1
	for i, c := range r.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]any, len(r.Values))
	for i, row := range r.Values {
		out[i] = row[idx]
	}
	return out
}

// Maps returns the rows keyed by column name.
func (r Rows) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Values))
	for i, row := range r.Values {
		m := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// GroupBy groups items by key into a map[K][]T, keeping item order
// within each group.
func GroupBy[K comparable, T any](items []T, key func(T) K) map[K][]T {
	m := make(map[K][]T)
	for _, it := range items {
		k := key(it)
		m[k] = append(m[k], it)
	}
	return m
}

// UniqueKeys extracts deduplicated keys from items in order of first
// appearance.
func UniqueKeys[K comparable, T any](items []T, key func(T) K) []K {
	seen := make(map[K]struct{}, len(items))
	result := make([]K, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			result = append(result, k)
		}
	}
	return result
}
