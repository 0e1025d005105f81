package repository

import (
	"errors"

	"github.com/dropDatabas3/docstore/internal/versioning"
)

var (
	// ErrNotFound indica que el documento no existe o fue borrado.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indica que la operación no está implementada por este driver.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNotLeader indica que la operación requiere ser líder del cluster.
	ErrNotLeader = errors.New("not cluster leader")

	// ErrClusterUnavailable indica que el cluster no está disponible.
	ErrClusterUnavailable = errors.New("cluster unavailable")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es un conflicto de versión.
func IsConflict(err error) bool {
	return versioning.IsConflict(err)
}

// IsNotLeader verifica si el error es ErrNotLeader.
func IsNotLeader(err error) bool {
	return errors.Is(err, ErrNotLeader)
}
