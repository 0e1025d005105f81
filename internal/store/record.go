package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
)

// record es la forma serializada de un documento en backends clave/valor
// (redis, jetstream). El payload se embebe como JSON crudo.
type record struct {
	Version   int64           `json:"v"`
	Payload   json.RawMessage `json:"p,omitempty"`
	Deleted   bool            `json:"d,omitempty"`
	UpdatedAt time.Time       `json:"t"`
}

// EncodeRecord serializa un documento para un backend clave/valor.
func EncodeRecord(d *repository.Document) ([]byte, error) {
	return json.Marshal(record{
		Version:   d.Version,
		Payload:   d.Payload,
		Deleted:   d.Deleted,
		UpdatedAt: d.UpdatedAt,
	})
}

// DecodeRecord reconstruye el documento desde su forma serializada.
func DecodeRecord(namespace, id string, data []byte) (*repository.Document, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("store: decode record %s/%s: %w", namespace, id, err)
	}
	return &repository.Document{
		Namespace: namespace,
		ID:        id,
		Version:   r.Version,
		Payload:   r.Payload,
		Deleted:   r.Deleted,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
