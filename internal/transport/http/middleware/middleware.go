package middleware

import (
	"context"
	"net/http"
)

// Middleware — стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxBearerToken
)

// BearerFromContext возвращает сырой Bearer-токен, положенный AuthBearer.
func BearerFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ctxBearerToken).(string)
	return token, ok && token != ""
}

// RequestIDFromContext возвращает request id текущего запроса.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxRequestID).(string)
	return id, ok && id != ""
}

// statusWriter оборачивает ResponseWriter, чтобы перехватить статус и размер.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}
