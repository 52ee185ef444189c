package core

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict señala una violación de unique constraint. Para el
	// reconciler es un resultado esperado (alguien más acaba de crear la
	// fila), no una falla.
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)
