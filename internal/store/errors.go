package store

import (
	"errors"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
)

// Errores comunes del store.
var (
	// ErrNotLeader indica que la operación requiere ser leader del cluster.
	// Es el mismo valor que repository.ErrNotLeader para que errors.Is funcione en ambas capas.
	ErrNotLeader = repository.ErrNotLeader

	// ErrContention indica que se agotaron los reintentos ante escrituras concurrentes
	// (redis WATCH, jetstream revision). No es un conflicto de versión.
	ErrContention = errors.New("store: write contention, retries exhausted")

	// ErrClosed indica uso de una conexión cerrada.
	ErrClosed = errors.New("store: connection closed")
)

// IsContention helper para verificar si el error es por contención.
func IsContention(err error) bool {
	return errors.Is(err, ErrContention)
}
