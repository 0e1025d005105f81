// Package audit emite eventos de auditoría de mutaciones de documentos.
// Van al logger "audit" con los campos del request (request_id, subject).
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/docstore/internal/observability/logger"
)

// Eventos emitidos por la API de documentos.
const (
	EventDocumentCreated = "document.created"
	EventDocumentUpdated = "document.updated"
	EventDocumentDeleted = "document.deleted"
)

// Log escribe un evento de auditoría estructurado.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(event, append([]zap.Field{logger.String("event", event)}, fields...)...)
}
