// Package cluster provee la infraestructura Raft: el nodo embebido y el FSM
// que replica las escrituras de documentos.
package cluster

import (
	"encoding/json"
	"time"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

// MutationType define el catálogo de operaciones replicadas.
type MutationType string

const (
	MutationIndex  MutationType = "doc.index"
	MutationDelete MutationType = "doc.delete"
)

// Mutation representa una escritura a replicar por Raft.
// El gate se evalúa recién en el FSM, sobre el estado replicado, así que
// la mutación lleva la solicitud original y no la versión resultante.
type Mutation struct {
	Type        MutationType    `json:"type"`
	Namespace   string          `json:"namespace"`
	ID          string          `json:"id"`
	Version     int64           `json:"version,omitempty"`
	VersionType string          `json:"versionType,omitempty"`
	OpType      string          `json:"opType,omitempty"`
	MustExist   bool            `json:"mustExist,omitempty"`
	TsUnixNano  int64           `json:"tsUnixNano"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// ApplyResult es la respuesta del FSM que viaja en el future de raft.Apply.
// Err lleva los errores de dominio (conflicto, not found, input inválido).
type ApplyResult struct {
	Result *repository.WriteResult
	Err    error
}

// IndexMutation construye la mutación de una escritura. El timestamp lo fija
// el líder para que todas las réplicas apliquen el mismo UpdatedAt.
func IndexMutation(req repository.WriteRequest, now time.Time) Mutation {
	return Mutation{
		Type:        MutationIndex,
		Namespace:   req.Namespace,
		ID:          req.ID,
		Version:     req.Version,
		VersionType: string(req.VersionType),
		OpType:      string(req.OpType),
		MustExist:   req.MustExist,
		TsUnixNano:  now.UnixNano(),
		Payload:     req.Payload,
	}
}

// DeleteMutation construye la mutación de un borrado.
func DeleteMutation(req repository.DeleteRequest, now time.Time) Mutation {
	return Mutation{
		Type:        MutationDelete,
		Namespace:   req.Namespace,
		ID:          req.ID,
		Version:     req.Version,
		VersionType: string(req.VersionType),
		TsUnixNano:  now.UnixNano(),
	}
}

// WriteRequest reconstruye la solicitud de escritura.
func (m Mutation) WriteRequest() repository.WriteRequest {
	return repository.WriteRequest{
		Namespace:   m.Namespace,
		ID:          m.ID,
		Payload:     m.Payload,
		Version:     m.Version,
		VersionType: versioning.VersionType(m.VersionType),
		OpType:      repository.OpType(m.OpType),
		MustExist:   m.MustExist,
	}
}

// DeleteRequest reconstruye la solicitud de borrado.
func (m Mutation) DeleteRequest() repository.DeleteRequest {
	return repository.DeleteRequest{
		Namespace:   m.Namespace,
		ID:          m.ID,
		Version:     m.Version,
		VersionType: versioning.VersionType(m.VersionType),
	}
}

// Time retorna el timestamp fijado por el líder.
func (m Mutation) Time() time.Time {
	return time.Unix(0, m.TsUnixNano)
}
