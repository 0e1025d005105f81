// Package errors define el catálogo de errores HTTP y su serialización.
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/docstore/internal/versioning"
)

// errorResponse structura interna para la serialización JSON.
// Los campos de versión sólo se envían para VERSION_CONFLICT.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`

	Index           string `json:"index,omitempty"`
	ID              string `json:"id,omitempty"`
	CurrentVersion  *int64 `json:"current_version,omitempty"`
	ProvidedVersion *int64 `json:"provided_version,omitempty"`
	VersionType     string `json:"version_type,omitempty"`
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
// Maneja automáticamente errores de tipo *AppError y errores genéricos.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}
	if ce, ok := versioning.AsConflict(appErr.Err); ok {
		cur, prov := ce.Current, ce.Provided
		resp.Index = ce.Namespace
		resp.ID = ce.ID
		resp.CurrentVersion = &cur
		resp.ProvidedVersion = &prov
		resp.VersionType = string(ce.Type)
		if resp.Detail == "" {
			resp.Detail = ce.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
