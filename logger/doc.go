// Package logger provides structured logging for the kernel using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Every bootstrap step and the provider registry
// log through a component logger obtained from Get:
//
//	log := logger.Get("bootstrap")
//	log.Debug("Booting Transaction Pool...", logger.Fields("provider", "pool"))
package logger
