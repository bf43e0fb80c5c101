// Package spam — эвристика подозрительных комментариев.
// Классификатор чистый и детерминированный: никакого ввода-вывода,
// одинаковый вход всегда даёт одинаковый результат.
package spam

import (
	"regexp"
	"strings"
)

// Rule — идентификатор сработавшего правила.
type Rule string

const (
	RuleSuspiciousTLD   Rule = "suspicious_tld"
	RuleScriptInjection Rule = "script_injection"
	RuleKeyword         Rule = "keyword"
)

var (
	// DefaultTLDs — домены верхнего уровня с низким доверием.
	DefaultTLDs = []string{"tk", "ml", "ga", "cf"}
	// DefaultKeywords — типовые спам-слова.
	DefaultKeywords = []string{"viagra", "casino", "poker", "loan", "credit"}
)

var scriptRe = regexp.MustCompile(`(?i)<script|javascript:`)

// Classifier проверяет имя и текст комментария по набору независимых правил.
// Любое сработавшее правило помечает комментарий (flagged); сам комментарий
// при этом не отклоняется.
type Classifier struct {
	tldRe     *regexp.Regexp
	keywordRe *regexp.Regexp
}

// New собирает классификатор. Пустые списки заменяются значениями по умолчанию.
func New(tlds, keywords []string) *Classifier {
	tlds = clean(tlds)
	if len(tlds) == 0 {
		tlds = DefaultTLDs
	}

	keywords = clean(keywords)
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}

	return &Classifier{
		tldRe:     regexp.MustCompile(`(?i)https?://[^\s]+\.(?:` + alternation(tlds) + `)\b`),
		keywordRe: regexp.MustCompile(`(?i)\b(?:` + alternation(keywords) + `)\b`),
	}
}

// Classify возвращает true, если сработало хотя бы одно правило.
func (c *Classifier) Classify(name, message string) bool {
	return len(c.Match(name, message)) > 0
}

// Match возвращает список сработавших правил (для логов), без повторов.
// Каждое правило проверяется и по имени, и по тексту.
func (c *Classifier) Match(name, message string) []Rule {
	var rules []Rule

	check := func(re *regexp.Regexp, r Rule) {
		if re.MatchString(message) || re.MatchString(name) {
			rules = append(rules, r)
		}
	}

	check(c.tldRe, RuleSuspiciousTLD)
	check(scriptRe, RuleScriptInjection)
	check(c.keywordRe, RuleKeyword)

	return rules
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.Trim(strings.TrimSpace(s), "."))
		if s != "" {
			out = append(out, s)
		}
	}

	return out
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}

	return strings.Join(quoted, "|")
}
