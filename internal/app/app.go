// app собирает сервис комментариев из конфигурации: хранилище, репозиторий,
// классификатор спама, уведомления и метрики.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/metrics"
	"github.com/pribylovaa/site-comments/internal/notify"
	"github.com/pribylovaa/site-comments/internal/repository"
	"github.com/pribylovaa/site-comments/internal/service"
	"github.com/pribylovaa/site-comments/internal/spam"
	"github.com/pribylovaa/site-comments/internal/storage"
	"github.com/pribylovaa/site-comments/internal/storage/file"
	"github.com/pribylovaa/site-comments/internal/storage/memory"
	"github.com/pribylovaa/site-comments/internal/storage/minio"
	"github.com/pribylovaa/site-comments/internal/storage/mongo"
)

// App агрегирует зависимости сервиса.
type App struct {
	Service *service.Service
	Store   storage.Store
	Metrics *metrics.Metrics

	publisher *notify.Publisher
	ping      func(context.Context) error
	closers   []func(context.Context) error
}

// New создаёт хранилище по cfg.Store.Driver и собирает сервис поверх него.
// reg == nil отключает метрики.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*App, error) {
	const op = "internal/app/New"

	a := &App{}

	st, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.Store = st

	if reg != nil {
		a.Metrics = metrics.New(reg)
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.ModeratorContact != "" {
		pub, err := notify.New(notify.Options{
			URL:       cfg.Notify.NATSURL,
			Subject:   cfg.Notify.Subject,
			Stream:    cfg.Notify.Stream,
			Moderator: cfg.Notify.ModeratorContact,
		}, log)
		if err != nil {
			_ = a.closeStore(ctx)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		a.publisher = pub
		notifier = pub
	}

	repo := repository.New(st, cfg.Store.MaxRetries)
	classifier := spam.New(cfg.Spam.SuspiciousTLDs, cfg.Spam.Keywords)
	a.Service = service.New(repo, classifier, notifier, a.Metrics, cfg)

	log.Info("app_initialized",
		slog.String("driver", cfg.Store.Driver),
		slog.String("scope", cfg.Store.Scope),
		slog.Bool("notify", a.publisher != nil),
	)

	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverFile, "":
		return file.New(cfg.Store.File.Path)
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverMongo:
		m, err := mongo.New(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		a.ping = m.Ping
		a.closers = append(a.closers, m.Close)
		return m, nil
	case config.DriverMinio:
		s, err := minio.New(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		a.ping = s.Ping
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Ping проверяет доступность хранилища (для /healthz).
// Локальные хранилища всегда доступны.
func (a *App) Ping(ctx context.Context) error {
	if a.ping == nil {
		return nil
	}

	return a.ping(ctx)
}

// Close дожидается фоновых уведомлений, закрывает издателя и хранилище.
func (a *App) Close(ctx context.Context) error {
	if a.Service != nil {
		a.Service.Wait()
	}

	if a.publisher != nil {
		a.publisher.Close()
	}

	return a.closeStore(ctx)
}

func (a *App) closeStore(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil

	return errors.Join(errs...)
}
