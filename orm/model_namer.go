package orm

import "reflect"

// ModelNamer can be implemented by model structs to override the model
// name derived from the Go type name.
type ModelNamer interface {
	ModelName() string
}

// ResolveModelName returns the model name for type T.
// If T implements ModelNamer (value or pointer receiver), that name is used;
// otherwise the Go type name is returned.
func ResolveModelName[T any]() string {
	var zero T
	if mn, ok := any(&zero).(ModelNamer); ok {
		return mn.ModelName()
	}
	return reflect.TypeFor[T]().Name()
}
