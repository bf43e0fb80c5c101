// service содержит бизнес-логику сервиса комментариев:
// приём отправок, модерацию и выборки для публичной и административной выдачи.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/metrics"
	"github.com/pribylovaa/site-comments/internal/notify"
	"github.com/pribylovaa/site-comments/internal/repository"
	"github.com/pribylovaa/site-comments/internal/spam"
	"github.com/pribylovaa/site-comments/internal/storage"
)

var (
	// ErrValidation — некорректные или отсутствующие поля запроса.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound — комментарий с таким id не найден.
	ErrNotFound = errors.New("not found")
	// ErrStorageFault — сбой ввода-вывода хранилища.
	ErrStorageFault = errors.New("storage fault")
	// ErrConflict — не удалось применить изменение из-за параллельных записей.
	ErrConflict = errors.New("conflict")
	// ErrInternal — прочие внутренние ошибки (контекст и т.д.).
	ErrInternal = errors.New("internal")
)

// ValidationError — ошибка валидации с безопасным для клиента сообщением.
// errors.Is(err, ErrValidation) для неё истинно.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() + ": " + e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Service — бизнес-логика сервиса комментариев.
type Service struct {
	repo       *repository.Repository
	classifier *spam.Classifier
	notifier   notify.Notifier
	metrics    *metrics.Metrics
	cfg        config.Config

	// pending — фоновые отправки уведомлений.
	pending sync.WaitGroup
}

// New создает новый экземпляр Service.
// notifier и m могут быть nil: уведомления и метрики тогда отключены.
func New(repo *repository.Repository, classifier *spam.Classifier, notifier notify.Notifier, m *metrics.Metrics, cfg config.Config) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}

	if classifier == nil {
		classifier = spam.New(cfg.Spam.SuspiciousTLDs, cfg.Spam.Keywords)
	}

	return &Service{
		repo:       repo,
		classifier: classifier,
		notifier:   notifier,
		metrics:    m,
		cfg:        cfg,
	}
}

// Wait дожидается завершения фоновых уведомлений (graceful shutdown, тесты).
func (s *Service) Wait() {
	s.pending.Wait()
}

// mapStorageErr переводит ошибки репозитория и хранилища в ошибки сервиса
// и логирует внутренние сбои.
func (s *Service) mapStorageErr(lg *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		lg.Warn("comment not found")
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, storage.ErrConflict):
		s.metrics.StoreConflict()
		lg.Error("container revision conflict, retries exhausted", "err", err)
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, storage.ErrStorageFault):
		lg.Error("storage fault", "err", err)
		return fmt.Errorf("%s: %w", op, ErrStorageFault)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		lg.Warn("request context done", "err", err)
		return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	default:
		lg.Error("unexpected repository error", "err", err)
		return fmt.Errorf("%s: %w", op, ErrInternal)
	}
}
