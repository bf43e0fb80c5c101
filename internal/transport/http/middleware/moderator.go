package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/pribylovaa/site-comments/internal/transport/http/apierrors"
	logctx "github.com/pribylovaa/site-comments/pkg/log"
	"github.com/pribylovaa/site-comments/pkg/redact"
)

// ModeratorHeader — необязательное имя модератора для moderatedBy.
const ModeratorHeader = "X-Moderator"

// ModeratorAuth пропускает только запросы с Authorization: Bearer <token>,
// совпадающим с настроенным токеном. Сравнение выполняется за постоянное время.
// Пустой token закрывает доступ полностью. Имя модератора из X-Moderator
// (если передано) кладётся в контекст по ключу CtxModerator.
func ModeratorAuth(token string) Middleware {
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := bearer(r.Header.Get("Authorization"))

			if len(want) == 0 || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logctx.From(r.Context()).Warn("moderator auth failed", "path", r.URL.Path, "ip", redact.IP(ClientIP(r)))
				apierrors.WriteError(w, r, apierrors.ErrUnauthorized)
				return
			}

			if name := strings.TrimSpace(r.Header.Get(ModeratorHeader)); name != "" {
				r = r.WithContext(context.WithValue(r.Context(), CtxModerator, name))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearer извлекает "сырой" токен из заголовка Authorization.
func bearer(auth string) string {
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
