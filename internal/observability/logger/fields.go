package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar: HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Campos estándar: negocio

// TeamID crea un campo para el ID del team.
func TeamID(v string) zap.Field { return zap.String("team_id", v) }

// AccountID crea un campo para el ID de la cuenta interna.
func AccountID(v string) zap.Field { return zap.String("account_id", v) }

// Provider crea un campo para el proveedor de credenciales
// (password, directory, invitation, external:<name>).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// Username crea un campo para el username presentado.
func Username(v string) zap.Field { return zap.String("username", v) }

// Email crea un campo para el email (usar con cuidado en prod).
func Email(v string) zap.Field { return zap.String("email", v) }

// Notice crea un campo para la clase de fallo user-visible (notice=...).
func Notice(v string) zap.Field { return zap.String("notice", v) }

// Campos estándar: sistema

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Genéricos

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
