// Package documents contiene los DTOs de la API de documentos.
package documents

import "encoding/json"

// WriteResponse es la respuesta de index/create/delete.
type WriteResponse struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"` // created | updated | deleted
}

// GetResponse es la respuesta de GET /{index}/_doc/{id}.
type GetResponse struct {
	Index   string          `json:"_index"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version"`
	Found   bool            `json:"found"`
	Source  json.RawMessage `json:"_source,omitempty"`
}

// WriteParams son los parámetros de concurrencia de una escritura tal como
// llegan por query string, más el If-Match ya interpretado.
type WriteParams struct {
	Version     string // ?version=
	VersionType string // ?version_type=
	OpType      string // ?op_type=

	IfMatchVersion int64 // If-Match: "<n>"
	IfMatchAny     bool  // If-Match: *
}
