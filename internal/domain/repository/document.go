package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/docstore/internal/versioning"
)

// Document es un registro versionado dentro de un namespace (índice).
type Document struct {
	Namespace string          `json:"namespace"`
	ID        string          `json:"id"`
	Version   int64           `json:"version"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// State devuelve la vista del documento que evalúa el gate. nil => sin registro.
func (d *Document) State() versioning.State {
	if d == nil {
		return versioning.State{}
	}
	return versioning.State{Exists: true, Deleted: d.Deleted, Version: d.Version}
}

// Live indica si el documento existe y no es un tombstone.
func (d *Document) Live() bool {
	return d != nil && !d.Deleted
}

// Clone retorna una copia profunda.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Payload != nil {
		cp.Payload = append(json.RawMessage(nil), d.Payload...)
	}
	return &cp
}

// OpType indica la semántica de la escritura.
type OpType string

const (
	OpIndex  OpType = "index"
	OpCreate OpType = "create"
)

// Result describe el efecto de una mutación exitosa.
type Result string

const (
	ResultCreated Result = "created"
	ResultUpdated Result = "updated"
	ResultDeleted Result = "deleted"
)

// WriteRequest es una escritura (index/create) sobre un documento.
type WriteRequest struct {
	Namespace   string
	ID          string
	Payload     []byte
	Version     int64
	VersionType versioning.VersionType
	OpType      OpType
	// MustExist corresponde a If-Match: *.
	MustExist bool
}

// DeleteRequest es un borrado versionado.
type DeleteRequest struct {
	Namespace   string
	ID          string
	Version     int64
	VersionType versioning.VersionType
}

// WriteResult es lo que ve el cliente tras una mutación exitosa.
type WriteResult struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Version   int64  `json:"version"`
	Result    Result `json:"result"`
}

// DocumentRepository define el acceso a documentos versionados.
// Toda implementación evalúa el gate de forma atómica por (namespace, id).
type DocumentRepository interface {
	// Get retorna el documento vivo. ErrNotFound si no existe o es tombstone.
	Get(ctx context.Context, namespace, id string) (*Document, error)

	// Index crea o reemplaza el documento según el gate.
	// Retorna *versioning.ConflictError si la versión no cumple.
	Index(ctx context.Context, req WriteRequest) (*WriteResult, error)

	// Delete deja un tombstone con nueva versión. ErrNotFound si no hay documento vivo.
	Delete(ctx context.Context, req DeleteRequest) (*WriteResult, error)
}

// ApplyWrite calcula el estado siguiente de un documento para una escritura.
// cur puede ser nil. No muta cur.
func ApplyWrite(cur *Document, req WriteRequest, now time.Time) (*Document, *WriteResult, error) {
	d, err := versioning.Evaluate(req.Namespace, req.ID, cur.State(), versioning.Request{
		Version:    req.Version,
		Type:       req.VersionType,
		CreateOnly: req.OpType == OpCreate,
		MustExist:  req.MustExist,
	})
	if err != nil {
		return nil, nil, err
	}
	next := &Document{
		Namespace: req.Namespace,
		ID:        req.ID,
		Version:   d.Version,
		Payload:   append(json.RawMessage(nil), req.Payload...),
		UpdatedAt: now.UTC(),
	}
	res := ResultUpdated
	if d.Created {
		res = ResultCreated
	}
	return next, &WriteResult{Namespace: req.Namespace, ID: req.ID, Version: d.Version, Result: res}, nil
}

// ApplyDelete calcula el tombstone resultante de un borrado.
// Sin documento vivo retorna ErrNotFound y el estado no cambia.
func ApplyDelete(cur *Document, req DeleteRequest, now time.Time) (*Document, *WriteResult, error) {
	if !cur.Live() {
		return nil, nil, ErrNotFound
	}
	d, err := versioning.Evaluate(req.Namespace, req.ID, cur.State(), versioning.Request{
		Version: req.Version,
		Type:    req.VersionType,
	})
	if err != nil {
		return nil, nil, err
	}
	next := &Document{
		Namespace: req.Namespace,
		ID:        req.ID,
		Version:   d.Version,
		Deleted:   true,
		UpdatedAt: now.UTC(),
	}
	return next, &WriteResult{Namespace: req.Namespace, ID: req.ID, Version: d.Version, Result: ResultDeleted}, nil
}
