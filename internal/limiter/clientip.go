package limiter

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP определяет адрес клиента по первому заслуживающему доверия
// сигналу: первый сегмент X-Forwarded-For → X-Real-IP → адрес
// соединения. Порядок рассчитан на деплой за reverse-proxy; если edge
// не вычищает клиентские forwarded-заголовки, где-то выше по стеку это
// становится вектором подмены.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}

	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
