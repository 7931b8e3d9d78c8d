package router

// CompilePattern exposes compilePattern for tests. It returns the
// gorilla/mux template.
func CompilePattern(path string) (string, error) {
	p, err := compilePattern(path)
	return p.template, err
}

// PathValues compiles path and converts vars with it.
func PathValues(path string, vars map[string]string) (map[string]any, error) {
	p, err := compilePattern(path)
	if err != nil {
		return nil, err
	}
	return p.values(vars)
}
