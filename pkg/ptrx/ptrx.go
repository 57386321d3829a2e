// Package ptrx tiene helpers para columnas y campos opcionales
package ptrx

// Of returns a pointer value for the value passed in.
func Of[T any](v T) *T {
	return &v
}

// Value devuelve *p o el zero value si p es nil
func Value[T any](p *T) T {
	var zero T
	return ValueOr(p, zero)
}

// ValueOr devuelve *p o def si p es nil
func ValueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
