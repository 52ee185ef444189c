// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),   // "dev" o "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En handlers/services (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("reconciled identity", logger.AccountID(id), logger.Provider(p))
//
// Sin contexto (fallback a singleton):
//
//	logger.L().Info("application started")
package logger
