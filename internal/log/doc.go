// Package log contains the Logger shared by the whole server. The Logger wraps zap.SugaredLogger.
// Build one instance in main and inject it into every manager, service and the web server.
package log
