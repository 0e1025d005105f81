package versioning

import (
	"errors"
	"fmt"
)

// ErrVersionConflict es el sentinel para errors.Is sobre *ConflictError.
var ErrVersionConflict = errors.New("version conflict")

// ConflictError describe un rechazo del gate. El registro no se modifica.
type ConflictError struct {
	Namespace string
	ID        string
	Current   int64
	Provided  int64
	Type      VersionType
	Reason    string
}

func newConflict(namespace, id string, current, provided int64, vt VersionType, reason string) *ConflictError {
	return &ConflictError{
		Namespace: namespace,
		ID:        id,
		Current:   current,
		Provided:  provided,
		Type:      vt,
		Reason:    reason,
	}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("[%s]: version conflict, %s", e.ID, e.Reason)
}

// Is permite errors.Is(err, ErrVersionConflict).
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// AsConflict extrae el *ConflictError de la cadena, si existe.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsConflict verifica si el error es un conflicto de versión.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
