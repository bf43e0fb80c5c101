// redact маскирует персональные данные авторов комментариев для логов
// (e-mail, IP), оставляя контекст, полезный для отладки.
package redact

import (
	"net/netip"
	"strings"
)

// Email маскирует e-mail для логирования.
//
// Правила:
//   - пустая строка остаётся пустой (автор не оставил контакт);
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть заменяется на первые два символа (по рунам) + "***";
//   - если длина локальной части ≤ 2 символов, возвращается "***@<domain>";
//   - домен не меняется.
//
// Примеры:
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if s == "" {
		return ""
	}

	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// IP обнуляет хостовую часть адреса: /24 для IPv4, /48 для IPv6.
// Нераспознанное значение заменяется на "***".
//
//	"203.0.113.9"  -> "203.0.113.0/24"
//	"2001:db8::1"  -> "2001:db8::/48"
func IP(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "***"
	}

	bits := 48
	if addr.Is4() || addr.Is4In6() {
		addr = addr.Unmap()
		bits = 24
	}

	p, err := addr.Prefix(bits)
	if err != nil {
		return "***"
	}

	return p.String()
}
