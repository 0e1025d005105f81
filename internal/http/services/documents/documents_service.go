// Package documents contiene el service de la API de documentos: valida la
// entrada, traduce los parámetros de versión y delega en el repositorio.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/docstore/internal/audit"
	"github.com/dropDatabas3/docstore/internal/domain/repository"
	dto "github.com/dropDatabas3/docstore/internal/http/dto/documents"
	"github.com/dropDatabas3/docstore/internal/metrics"
	"github.com/dropDatabas3/docstore/internal/observability/logger"
	"github.com/dropDatabas3/docstore/internal/validation"
	"github.com/dropDatabas3/docstore/internal/versioning"
)

var (
	// ErrInvalidParameter: index, id u otro parámetro inválido.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidPayload: el body no es un objeto JSON.
	ErrInvalidPayload = errors.New("invalid payload")
)

// WriteInput es una escritura recibida por la API.
type WriteInput struct {
	Index  string
	ID     string
	Body   []byte
	Params dto.WriteParams

	// CreateOnly fuerza op_type=create (endpoint _create).
	CreateOnly bool
	// GenerateID asigna un UUID cuando ID está vacío (POST /{index}/_doc).
	GenerateID bool
}

// DeleteInput es un borrado recibido por la API.
type DeleteInput struct {
	Index  string
	ID     string
	Params dto.WriteParams
}

// DocumentService define las operaciones de documentos.
type DocumentService interface {
	Get(ctx context.Context, index, id string) (*dto.GetResponse, error)
	Index(ctx context.Context, in WriteInput) (*dto.WriteResponse, error)
	Delete(ctx context.Context, in DeleteInput) (*dto.WriteResponse, error)
}

type documentService struct {
	repo repository.DocumentRepository
}

// NewDocumentService crea el service sobre un repositorio.
func NewDocumentService(repo repository.DocumentRepository) DocumentService {
	return &documentService{repo: repo}
}

const componentDocuments = "documents"

func (s *documentService) Get(ctx context.Context, index, id string) (*dto.GetResponse, error) {
	if err := validateTarget(index, id); err != nil {
		return nil, err
	}
	doc, err := s.repo.Get(ctx, index, id)
	if err != nil {
		return nil, err
	}
	return &dto.GetResponse{
		Index:   doc.Namespace,
		ID:      doc.ID,
		Version: doc.Version,
		Found:   true,
		Source:  doc.Payload,
	}, nil
}

func (s *documentService) Index(ctx context.Context, in WriteInput) (*dto.WriteResponse, error) {
	if in.ID == "" && in.GenerateID {
		in.ID = uuid.NewString()
		in.CreateOnly = true
	}
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentDocuments),
		logger.Op("DocumentService.Index"),
		logger.Namespace(in.Index),
		logger.DocID(in.ID),
	)

	req, err := buildWriteRequest(in)
	if err != nil {
		metrics.ObserveWrite(string(repository.OpIndex), versionTypeLabel(in.Params.VersionType), metrics.ResultInvalid, 0)
		return nil, err
	}

	start := time.Now()
	res, err := s.repo.Index(ctx, req)
	took := time.Since(start)
	op := string(req.OpType)
	vt := string(req.VersionType)
	if err != nil {
		s.observeFailure(log, op, vt, err, took)
		return nil, err
	}

	metrics.ObserveWrite(op, vt, metrics.ResultOK, took)
	log.Debug("document written",
		logger.Version(res.Version),
		logger.VersionType(vt),
		logger.String("result", string(res.Result)),
	)
	event := audit.EventDocumentUpdated
	if res.Result == repository.ResultCreated {
		event = audit.EventDocumentCreated
	}
	audit.Log(ctx, event, logger.Namespace(res.Namespace), logger.DocID(res.ID), logger.Version(res.Version), logger.VersionType(vt))
	return toWriteResponse(res), nil
}

func (s *documentService) Delete(ctx context.Context, in DeleteInput) (*dto.WriteResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentDocuments),
		logger.Op("DocumentService.Delete"),
		logger.Namespace(in.Index),
		logger.DocID(in.ID),
	)

	req, err := buildDeleteRequest(in)
	if err != nil {
		metrics.ObserveWrite("delete", versionTypeLabel(in.Params.VersionType), metrics.ResultInvalid, 0)
		return nil, err
	}

	start := time.Now()
	res, err := s.repo.Delete(ctx, req)
	took := time.Since(start)
	vt := string(req.VersionType)
	if err != nil {
		s.observeFailure(log, "delete", vt, err, took)
		return nil, err
	}

	metrics.ObserveWrite("delete", vt, metrics.ResultOK, took)
	log.Debug("document deleted", logger.Version(res.Version), logger.VersionType(vt))
	audit.Log(ctx, audit.EventDocumentDeleted, logger.Namespace(res.Namespace), logger.DocID(res.ID), logger.Version(res.Version))
	return toWriteResponse(res), nil
}

// observeFailure registra métrica y log según el tipo de error.
// Los conflictos son un resultado esperado y van a Info.
func (s *documentService) observeFailure(log *zap.Logger, op, vt string, err error, took time.Duration) {
	if ce, ok := versioning.AsConflict(err); ok {
		metrics.ObserveWrite(op, vt, metrics.ResultConflict, took)
		log.Info("version conflict",
			logger.CurrentVersion(ce.Current),
			logger.Version(ce.Provided),
			logger.VersionType(vt),
		)
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		metrics.ObserveWrite(op, vt, metrics.ResultNotFound, took)
		return
	}
	if errors.Is(err, versioning.ErrInvalidVersion) || errors.Is(err, versioning.ErrInvalidVersionType) {
		metrics.ObserveWrite(op, vt, metrics.ResultInvalid, took)
		return
	}
	metrics.ObserveWrite(op, vt, metrics.ResultError, took)
	if errors.Is(err, repository.ErrNotLeader) {
		log.Warn("write rejected, not leader", logger.Err(err))
		return
	}
	log.Error("document write failed", logger.Err(err))
}

// versionTypeLabel acota el label de métricas a valores conocidos.
func versionTypeLabel(raw string) string {
	vt, err := versioning.ParseVersionType(raw)
	if err != nil {
		return "unknown"
	}
	return string(vt)
}

func toWriteResponse(res *repository.WriteResult) *dto.WriteResponse {
	return &dto.WriteResponse{
		Index:   res.Namespace,
		ID:      res.ID,
		Version: res.Version,
		Result:  string(res.Result),
	}
}

// ───── validación y traducción de parámetros ─────

func validateTarget(index, id string) error {
	if !validation.ValidIndexName(index) {
		return fmt.Errorf("%w: index %q must be lowercase [a-z0-9._-], start with a letter or digit and be at most %d bytes", ErrInvalidParameter, index, validation.MaxIndexLen)
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidParameter)
	}
	if !validation.ValidDocumentID(id) {
		return fmt.Errorf("%w: id must be valid UTF-8 of at most %d bytes", ErrInvalidParameter, validation.MaxIDLen)
	}
	return nil
}

func validatePayload(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("%w: body must be a JSON object", ErrInvalidPayload)
	}
	return nil
}

// resolveVersion combina ?version, ?version_type e If-Match.
// If-Match sólo se usa cuando no hay ?version y aplica al modo internal.
func resolveVersion(p dto.WriteParams) (int64, versioning.VersionType, bool, error) {
	vt, err := versioning.ParseVersionType(p.VersionType)
	if err != nil {
		return 0, "", false, err
	}
	v, err := versioning.ParseVersion(p.Version)
	if err != nil {
		return 0, "", false, err
	}
	mustExist := false
	if v == versioning.NoVersion && (p.IfMatchVersion > 0 || p.IfMatchAny) {
		if vt != versioning.Internal {
			return 0, "", false, fmt.Errorf("%w: If-Match can only be combined with version_type internal", ErrInvalidParameter)
		}
		v = p.IfMatchVersion
		mustExist = p.IfMatchAny
	}
	if err := (versioning.Request{Version: v, Type: vt}).Validate(); err != nil {
		return 0, "", false, err
	}
	return v, vt, mustExist, nil
}

func buildWriteRequest(in WriteInput) (repository.WriteRequest, error) {
	if err := validateTarget(in.Index, in.ID); err != nil {
		return repository.WriteRequest{}, err
	}
	if err := validatePayload(in.Body); err != nil {
		return repository.WriteRequest{}, err
	}

	op := repository.OpIndex
	switch in.Params.OpType {
	case "", "index":
	case "create":
		op = repository.OpCreate
	default:
		return repository.WriteRequest{}, fmt.Errorf("%w: op_type %q (index|create)", ErrInvalidParameter, in.Params.OpType)
	}
	if in.CreateOnly {
		op = repository.OpCreate
	}

	v, vt, mustExist, err := resolveVersion(in.Params)
	if err != nil {
		return repository.WriteRequest{}, err
	}
	return repository.WriteRequest{
		Namespace:   in.Index,
		ID:          in.ID,
		Payload:     bytes.TrimSpace(in.Body),
		Version:     v,
		VersionType: vt,
		OpType:      op,
		MustExist:   mustExist,
	}, nil
}

func buildDeleteRequest(in DeleteInput) (repository.DeleteRequest, error) {
	if err := validateTarget(in.Index, in.ID); err != nil {
		return repository.DeleteRequest{}, err
	}
	v, vt, _, err := resolveVersion(in.Params)
	if err != nil {
		return repository.DeleteRequest{}, err
	}
	return repository.DeleteRequest{
		Namespace:   in.Index,
		ID:          in.ID,
		Version:     v,
		VersionType: vt,
	}, nil
}
