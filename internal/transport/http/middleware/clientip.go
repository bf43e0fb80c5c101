package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP определяет адрес отправителя: первый адрес X-Forwarded-For,
// затем X-Nf-Client-Connection-Ip (CDN), затем RemoteAddr; иначе "unknown".
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Nf-Client-Connection-Ip")); ip != "" {
		return ip
	}

	return PeerIP(r)
}

// PeerIP — адрес TCP-соединения (RemoteAddr) без заголовков прокси; иначе "unknown".
func PeerIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}

	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}
