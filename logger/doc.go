// Package logger provides structured logging on top of zerolog.
//
// Fields are passed as map[string]interface{} so call sites stay independent
// of the backend. A process-wide logger is configured once with Init and
// component loggers are derived with WithComponent.
package logger
