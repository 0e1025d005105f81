// Package documents contiene el controller de la API de documentos.
package documents

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/docstore/internal/domain/repository"
	dto "github.com/dropDatabas3/docstore/internal/http/dto/documents"
	httperrors "github.com/dropDatabas3/docstore/internal/http/errors"
	"github.com/dropDatabas3/docstore/internal/http/helpers"
	svc "github.com/dropDatabas3/docstore/internal/http/services/documents"
	"github.com/dropDatabas3/docstore/internal/store"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

// DocumentsController maneja /{index}/_doc y /{index}/_create.
type DocumentsController struct {
	service      svc.DocumentService
	maxBodyBytes int64
}

// NewDocumentsController crea el controller. maxBodyBytes <= 0 usa 1MiB.
func NewDocumentsController(service svc.DocumentService, maxBodyBytes int64) *DocumentsController {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &DocumentsController{service: service, maxBodyBytes: maxBodyBytes}
}

// Get maneja GET|HEAD /{index}/_doc/{id}
func (c *DocumentsController) Get(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.Get(r.Context(), urlParam(r, "index"), urlParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, mapDocumentError(err))
		return
	}
	w.Header().Set("ETag", helpers.VersionETag(res.Version))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

// Index maneja PUT|POST /{index}/_doc/{id}
func (c *DocumentsController) Index(w http.ResponseWriter, r *http.Request) {
	c.write(w, r, svc.WriteInput{Index: urlParam(r, "index"), ID: urlParam(r, "id")})
}

// Create maneja PUT|POST /{index}/_create/{id}
func (c *DocumentsController) Create(w http.ResponseWriter, r *http.Request) {
	c.write(w, r, svc.WriteInput{Index: urlParam(r, "index"), ID: urlParam(r, "id"), CreateOnly: true})
}

// IndexAutoID maneja POST /{index}/_doc
func (c *DocumentsController) IndexAutoID(w http.ResponseWriter, r *http.Request) {
	c.write(w, r, svc.WriteInput{Index: urlParam(r, "index"), GenerateID: true})
}

// Delete maneja DELETE /{index}/_doc/{id}
func (c *DocumentsController) Delete(w http.ResponseWriter, r *http.Request) {
	params, ok := writeParams(w, r)
	if !ok {
		return
	}
	res, err := c.service.Delete(r.Context(), svc.DeleteInput{
		Index:  urlParam(r, "index"),
		ID:     urlParam(r, "id"),
		Params: params,
	})
	if err != nil {
		httperrors.WriteError(w, mapDocumentError(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, res)
}

func (c *DocumentsController) write(w http.ResponseWriter, r *http.Request, in svc.WriteInput) {
	params, ok := writeParams(w, r)
	if !ok {
		return
	}
	body, err := helpers.ReadBody(w, r, c.maxBodyBytes)
	if err != nil {
		if errors.Is(err, helpers.ErrBodyTooLarge) {
			httperrors.WriteError(w, httperrors.ErrBodyTooLarge)
			return
		}
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("could not read body").WithCause(err))
		return
	}
	in.Body = body
	in.Params = params

	res, err := c.service.Index(r.Context(), in)
	if err != nil {
		httperrors.WriteError(w, mapDocumentError(err))
		return
	}
	status := http.StatusOK
	if res.Result == string(repository.ResultCreated) {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", helpers.VersionETag(res.Version))
	helpers.WriteJSON(w, status, res)
}

// urlParam devuelve el parámetro de ruta decodificado. chi enruta sobre
// RawPath cuando existe, y ahí los valores llegan escapados (ej: ids con "/").
func urlParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// writeParams lee query string e If-Match. Devuelve false si ya escribió error HTTP.
func writeParams(w http.ResponseWriter, r *http.Request) (dto.WriteParams, bool) {
	q := r.URL.Query()
	p := dto.WriteParams{
		Version:     q.Get("version"),
		VersionType: q.Get("version_type"),
		OpType:      q.Get("op_type"),
	}
	v, star, present, ok := helpers.IfMatch(r)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrInvalidParameter.WithDetail(`If-Match must be "*" or a quoted version number`))
		return p, false
	}
	if present {
		p.IfMatchVersion = v
		p.IfMatchAny = star
	}
	return p, true
}

// mapDocumentError traduce errores del service/store a AppError.
func mapDocumentError(err error) *httperrors.AppError {
	if ce, ok := versioning.AsConflict(err); ok {
		return httperrors.ErrVersionConflict.WithDetail(ce.Error()).WithCause(err)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return httperrors.ErrDocumentNotFound.WithCause(err)
	case errors.Is(err, svc.ErrInvalidPayload):
		return httperrors.ErrInvalidJSON.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, svc.ErrInvalidParameter),
		errors.Is(err, versioning.ErrInvalidVersion),
		errors.Is(err, versioning.ErrInvalidVersionType),
		errors.Is(err, repository.ErrInvalidInput):
		return httperrors.ErrInvalidParameter.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, store.ErrNotLeader):
		return httperrors.ErrNotLeader.WithCause(err)
	case errors.Is(err, store.ErrContention):
		return httperrors.ErrServiceUnavailable.WithDetail("write contention, retry the request").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return httperrors.ErrGatewayTimeout.WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
