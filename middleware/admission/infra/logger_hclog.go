package infra

import (
	"admission-gateway/middleware/admission/domain"

	"github.com/hashicorp/go-hclog"
)

// HclogViolationLogger adapta um hclog.Logger para o contrato do domínio.
type HclogViolationLogger struct {
	log hclog.Logger
}

func NewHclogViolationLogger(log hclog.Logger) *HclogViolationLogger {
	return &HclogViolationLogger{log: log}
}

var _ domain.ViolationLogger = (*HclogViolationLogger)(nil)

func (l *HclogViolationLogger) Warn(msg string, kv ...any) {
	if l == nil || l.log == nil {
		return
	}
	l.log.Warn(msg, kv...)
}
