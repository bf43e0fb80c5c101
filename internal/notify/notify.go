// Package notify — уведомление модератора о новых комментариях.
// Доставка асинхронная: события публикуются в NATS JetStream,
// дальнейшая рассылка (почта, мессенджеры) — дело подписчиков.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/pkg/redact"
)

// EventCommentSubmitted — тип события о новом комментарии.
const EventCommentSubmitted = "comment.submitted"

// Notifier сообщает модератору о новом комментарии.
type Notifier interface {
	Notify(ctx context.Context, c models.Comment) error
}

// Noop ничего не делает; используется, когда контакт модератора не настроен.
type Noop struct{}

func (Noop) Notify(context.Context, models.Comment) error { return nil }

// Event — полезная нагрузка, публикуемая в NATS.
type Event struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Moderator string       `json:"moderator"`
	Comment   CommentEvent `json:"comment"`
}

// CommentEvent — снимок комментария для модератора.
type CommentEvent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Message   string    `json:"message"`
	Page      string    `json:"page"`
	PageTitle string    `json:"pageTitle"`
	Flagged   bool      `json:"flagged"`
	CreatedAt time.Time `json:"createdAt"`
}

// publisher — подмножество nats.JetStreamContext, нужное для публикации.
type publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher публикует события в JetStream.
type Publisher struct {
	js        publisher
	nc        *nats.Conn
	subject   string
	moderator string
	log       *slog.Logger
}

// Options — параметры подключения издателя.
type Options struct {
	URL       string
	Subject   string
	Stream    string
	Moderator string
}

// New подключается к NATS и создаёт stream, если его ещё нет.
// Пустой URL даёт издателя-заглушку, который только пишет событие в лог.
func New(opts Options, log *slog.Logger) (*Publisher, error) {
	const op = "notify/New"

	p := &Publisher{subject: opts.Subject, moderator: opts.Moderator, log: log}

	if opts.URL == "" {
		log.Warn("NATS_URL not set, moderator notifications will not be published (stub mode)")
		return p, nil
	}

	nc, err := nats.Connect(opts.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     opts.Stream,
		Subjects: []string{opts.Subject},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		log.Warn("failed to create NATS stream (may already exist)", "stream", opts.Stream, "err", err)
	}

	log.Info("NATS publisher initialised", "stream", opts.Stream, "subject", opts.Subject, "moderator", redact.Email(opts.Moderator))

	p.js = js
	p.nc = nc
	return p, nil
}

// Notify публикует событие о комментарии. В режиме заглушки — только лог.
func (p *Publisher) Notify(ctx context.Context, c models.Comment) error {
	const op = "notify/Notify"

	evt := Event{
		EventID:   uuid.NewString(),
		EventType: EventCommentSubmitted,
		Moderator: p.moderator,
		Comment: CommentEvent{
			ID:        c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Message:   c.Message,
			Page:      c.PageID,
			PageTitle: c.PageTitle,
			Flagged:   c.Flagged,
			CreatedAt: c.CreatedAt,
		},
	}

	if p.js == nil {
		p.log.Debug("NATS stub: skipping publish",
			"subject", p.subject, "event_id", evt.EventID, "comment_id", c.ID, "email", redact.Email(c.Email))
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ack, err := p.js.Publish(p.subject, data, nats.Context(ctx), nats.MsgId(evt.EventID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.log.Debug("NATS event published", "subject", p.subject, "event_id", evt.EventID, "seq", ack.Sequence)
	return nil
}

// Close закрывает соединение с NATS.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

var (
	_ Notifier = Noop{}
	_ Notifier = (*Publisher)(nil)
)
