// Package audit records who asked for which billing operation.
package audit

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
)

// Logger records audit events. Implementations must be safe for concurrent
// use by HTTP handlers.
type Logger interface {
	Record(event string, fields map[string]any)
}

// LogAuditor writes audit events as single log lines.
type LogAuditor struct {
	logger *log.Logger
}

// NewLogAuditor constructs an auditor over the given logger.
func NewLogAuditor(logger *log.Logger) *LogAuditor {
	return &LogAuditor{logger: logger}
}

// Record emits one audit line with the fields JSON-encoded.
func (a *LogAuditor) Record(event string, fields map[string]any) {
	if a == nil || a.logger == nil {
		return
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		a.logger.Printf("audit %s", event)
		return
	}
	a.logger.Printf("audit %s %s", event, payload)
}

// Nop discards audit events.
type Nop struct{}

// Record implements Logger.
func (Nop) Record(string, map[string]any) {}

// ClientIP extracts the requesting client's address from proxy headers,
// falling back to the connection's remote address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
