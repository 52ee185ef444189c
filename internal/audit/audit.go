// Package audit registra eventos de seguridad del flujo de identidad como
// log estructurado. Hoy el sink es el logger del servicio; la forma del
// evento queda estable para poder mandarlo a un sink externo después.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/teamgate/internal/observability/logger"
)

// Eventos emitidos por el flujo de sign-in.
const (
	EventSigninSuccess    = "signin.success"
	EventSigninFailed     = "signin.failed"
	EventSigninMismatch   = "signin.provider_mismatch"
	EventAccountCreated   = "account.created"
	EventSessionExtended  = "session.extended"
	EventExtensionRefused = "session.extension_refused"
	EventSignedOut        = "session.signed_out"
)

// Log escribe un evento de auditoría con campos estructurados.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	all := make([]zap.Field, 0, len(fields)+1)
	all = append(all, logger.String("audit_event", event))
	all = append(all, fields...)
	logger.From(ctx).Info("audit", all...)
}
