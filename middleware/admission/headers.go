package admission

import (
	"encoding/json"
	"net/http"
	"time"

	"admission-gateway/middleware/admission/domain"
)

// writeRateHeaders anexa os sinais visíveis ao cliente em toda resposta
// que passou pelo contador (allow ou deny).
func writeRateHeaders(w http.ResponseWriter, dec domain.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
	h.Set("X-RateLimit-Reset", formatInt64(dec.ResetAt.Unix()))
}

type rejectionBody struct {
	ErrorCode         string `json:"error_code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

// writeRejection responde a negação estruturada: Retry-After + corpo JSON.
func writeRejection(w http.ResponseWriter, status int, dec domain.Decision) {
	secs := retryAfterSeconds(dec.RetryAfter)

	w.Header().Set("Retry-After", formatInt(secs))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rejectionBody{
		ErrorCode:         "rate_limit_exceeded",
		Message:           "too many requests",
		RetryAfterSeconds: secs,
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
