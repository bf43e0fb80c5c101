package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/site-comments/internal/metrics"
	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/pkg/log"
	"github.com/pribylovaa/site-comments/pkg/redact"
)

// AnonymousName подставляется, если имя после очистки пустое.
const AnonymousName = "Anonymous"

const defaultMaxFieldLength = 1000

// Submission — нормализованная отправка формы комментария.
// Honeypot — значение скрытого поля, которое заполняют только боты.
type Submission struct {
	Name      string
	Email     string
	Message   string
	PageID    string
	PageTitle string
	Honeypot  string
	IP        string
	UserAgent string
}

// IngestResult — ответ отправителю.
// Accepted всегда true для прошедших валидацию отправок; Comment пуст,
// если отправка отброшена (honeypot) или не сохранилась.
type IngestResult struct {
	Accepted bool
	Comment  *models.Comment
}

// Ingest принимает новую отправку.
//
// Правила:
//   - заполненный honeypot: отправка молча принимается и не сохраняется;
//   - пустое (после TrimSpace) сообщение -> ErrValidation;
//   - имя, сообщение, email и заголовок страницы очищаются от угловых скобок
//     и обрезаются до лимита; пустое имя заменяется на "Anonymous";
//   - спам-эвристика выставляет Flagged, статус всегда pending;
//   - ошибка сохранения логируется, но отправитель видит успех;
//   - уведомление модератору уходит в фоне и не влияет на ответ.
func (s *Service) Ingest(ctx context.Context, in Submission) (IngestResult, error) {
	const op = "service/ingest/Ingest"

	lg := log.From(ctx).With("op", op, "page", in.PageID, "ip", redact.IP(in.IP))

	if strings.TrimSpace(in.Honeypot) != "" {
		lg.Info("honeypot triggered, submission dropped")
		s.metrics.Submission(metrics.SubmissionHoneypot, false)
		return IngestResult{Accepted: true}, nil
	}

	if strings.TrimSpace(in.Message) == "" {
		lg.Warn("invalid argument: empty message")
		s.metrics.Submission(metrics.SubmissionInvalid, false)
		return IngestResult{}, fmt.Errorf("%s: %w", op, invalid("message is required"))
	}

	limit := s.cfg.Limits.MaxFieldLength
	if limit <= 0 {
		limit = defaultMaxFieldLength
	}

	name := Sanitize(in.Name, limit)
	if name == "" {
		name = AnonymousName
	}

	message := Sanitize(in.Message, limit)
	if message == "" {
		lg.Warn("invalid argument: message empty after sanitizing")
		s.metrics.Submission(metrics.SubmissionInvalid, false)
		return IngestResult{}, fmt.Errorf("%s: %w", op, invalid("message is required"))
	}

	// Очистка удаляет "<", поэтому правило <script проверяется и по исходному тексту.
	rules := s.classifier.Match(name, message)
	if len(rules) == 0 {
		rules = s.classifier.Match(in.Name, in.Message)
	}
	flagged := len(rules) > 0
	if flagged {
		lg.Info("submission flagged by spam heuristic", "rules", rules)
	}

	comm := models.Comment{
		Name:      name,
		Email:     Sanitize(in.Email, limit),
		Message:   message,
		PageID:    strings.TrimSpace(in.PageID),
		PageTitle: Sanitize(in.PageTitle, limit),
		Status:    models.StatusPending,
		Flagged:   flagged,
		IP:        strings.TrimSpace(in.IP),
		UserAgent: strings.TrimSpace(in.UserAgent),
	}

	saved, err := s.repo.Insert(ctx, comm)
	if err != nil {
		// Отправитель видит успех; потеря фиксируется только в логах и метриках.
		lg.Error("failed to persist submission, comment lost", "err", err, "flagged", flagged)
		s.metrics.Submission(metrics.SubmissionLost, flagged)
		return IngestResult{Accepted: true}, nil
	}

	lg.Info("comment stored", "id", saved.ID, "flagged", saved.Flagged)
	s.metrics.Submission(metrics.SubmissionStored, saved.Flagged)

	s.notifyModerator(ctx, *saved)

	return IngestResult{Accepted: true, Comment: saved}, nil
}

// notifyModerator отправляет уведомление в отдельной горутине со своим дедлайном.
// Контекст запроса отвязывается от отмены, но логгер из него сохраняется.
func (s *Service) notifyModerator(ctx context.Context, c models.Comment) {
	if s.cfg.Notify.ModeratorContact == "" {
		return
	}

	const op = "service/ingest/notifyModerator"

	base := context.WithoutCancel(ctx)
	timeout := s.cfg.Timeouts.Notify

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		nctx := base
		if timeout > 0 {
			var cancel context.CancelFunc
			nctx, cancel = context.WithTimeout(base, timeout)
			defer cancel()
		}

		err := s.notifier.Notify(nctx, c)
		s.metrics.Notification(err)
		if err != nil {
			log.From(nctx).Warn("moderator notification failed",
				"op", op, "id", c.ID, "page", c.PageID, "err", err)
		}
	}()
}

// Sanitize удаляет угловые скобки, обрезает пробелы и ограничивает длину
// limit символами (рунами).
func Sanitize(s string, limit int) string {
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = strings.TrimSpace(s)

	if limit > 0 && utf8.RuneCountInString(s) > limit {
		s = strings.TrimSpace(string([]rune(s)[:limit]))
	}

	return s
}
