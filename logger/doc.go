// Package logger provides structured logging for voicenotes
// using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.NewDefault("voicenotes").WithComponent("pipeline")
//	log.Info("segment transcribed", logger.Fields("segment", 2))
package logger
