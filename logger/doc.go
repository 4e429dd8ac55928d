// Package logger provides structured logging using zerolog.
//
// It supports JSON and console output, per-logger level configuration,
// and component-scoped loggers with structured fields. Diarization
// sessions log through a component logger tagged with the session ID.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("diarization")
//	log.Info("session reset", logger.Fields(logger.FieldSessionID, id))
package logger
