package infra

import (
	"sync"

	"admission-gateway/middleware/admission/domain"
)

// Violation é um registro de negação capturado pelo MemoryViolationLogger.
type Violation struct {
	Message string
	Fields  map[string]any
}

// MemoryViolationLogger é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
type MemoryViolationLogger struct {
	mu         sync.Mutex
	violations []Violation
}

func NewMemoryViolationLogger() *MemoryViolationLogger {
	return &MemoryViolationLogger{}
}

var _ domain.ViolationLogger = (*MemoryViolationLogger)(nil)

func (l *MemoryViolationLogger) Warn(msg string, kv ...any) {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[k] = kv[i+1]
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.violations = append(l.violations, Violation{Message: msg, Fields: fields})
}

func (l *MemoryViolationLogger) Violations() []Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Violation, len(l.violations))
	copy(out, l.violations)
	return out
}
