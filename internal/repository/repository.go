// Package repository реализует операции над комментариями поверх storage.Store.
//
// Каждая изменяющая операция — это цикл load → изменение в памяти → save.
// Чтобы параллельные запросы не затирали изменения друг друга (lost update),
// циклы сериализуются мьютексом репозитория, а при конфликте ревизий
// (storage.ErrConflict — контейнер изменил другой процесс) цикл повторяется
// на свежем снимке. Чтения мьютекс не берут и могут видеть слегка устаревший снимок.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/storage"
	"github.com/pribylovaa/site-comments/pkg/log"
)

var (
	// ErrNotFound — комментарий с таким id отсутствует.
	ErrNotFound = errors.New("comment not found")
	// ErrDuplicateID — вставка с уже существующим id.
	ErrDuplicateID = errors.New("duplicate comment id")
)

// Repository — единственная точка чтения/записи комментариев.
type Repository struct {
	store      storage.Store
	mu         sync.Mutex
	maxRetries int
	now        func() time.Time
	newID      func() string
}

// Option настраивает Repository.
type Option func(*Repository)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator подменяет генератор идентификаторов (для тестов).
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

// New создаёт репозиторий. maxRetries — число повторов при конфликте ревизий.
func New(store storage.Store, maxRetries int, opts ...Option) *Repository {
	if maxRetries < 0 {
		maxRetries = 0
	}

	r := &Repository{
		store:      store,
		maxRetries: maxRetries,
		now:        time.Now,
		newID:      uuid.NewString,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// timePrecision — точность временных меток: BSON хранит миллисекунды,
// и возвращённый вызывающему комментарий должен совпадать с перечитанным.
const timePrecision = time.Millisecond

// Now возвращает текущее время по часам репозитория (UTC, миллисекунды).
func (r *Repository) Now() time.Time {
	return r.now().UTC().Truncate(timePrecision)
}

// Insert добавляет комментарий. ID и CreatedAt выставляются, если пусты.
func (r *Repository) Insert(ctx context.Context, c models.Comment) (*models.Comment, error) {
	const op = "repository/Insert"

	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		c.ID = r.newID()
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(timePrecision)

	if !c.Status.Valid() {
		c.Status = models.StatusPending
	}

	err := r.mutate(ctx, op, func(cont *models.Container) error {
		if cont.Index(c.ID) >= 0 {
			return ErrDuplicateID
		}

		cont.Comments = append(cont.Comments, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CommentByID возвращает комментарий по id или ErrNotFound.
func (r *Repository) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	const op = "repository/CommentByID"

	cont, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	i := cont.Index(strings.TrimSpace(id))
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	out := cont.Comments[i]
	return &out, nil
}

// Update накладывает патч на комментарий.
// ModeratedAt проставляется, если патч затрагивает Status или Flagged.
func (r *Repository) Update(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	const op = "repository/Update"

	id = strings.TrimSpace(id)

	var out models.Comment
	err := r.mutate(ctx, op, func(cont *models.Container) error {
		i := cont.Index(id)
		if i < 0 {
			return ErrNotFound
		}

		cont.Comments[i] = patch.Apply(cont.Comments[i], r.Now())
		out = cont.Comments[i]
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Delete удаляет комментарий без возможности восстановления.
// Возвращает false, если комментария не было.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	const op = "repository/Delete"

	id = strings.TrimSpace(id)

	err := r.mutate(ctx, op, func(cont *models.Container) error {
		i := cont.Index(id)
		if i < 0 {
			return ErrNotFound
		}

		cont.Comments = append(cont.Comments[:i], cont.Comments[i+1:]...)
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// List возвращает комментарии, подходящие под фильтр, по возрастанию CreatedAt.
func (r *Repository) List(ctx context.Context, f models.Filter) ([]models.Comment, error) {
	const op = "repository/List"

	cont, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items := make([]models.Comment, 0, len(cont.Comments))
	for _, c := range cont.Comments {
		if f.Match(c) {
			items = append(items, c)
		}
	}

	models.SortByCreated(items)
	return items, nil
}

// Stats считает агрегаты по всему контейнеру.
func (r *Repository) Stats(ctx context.Context) (models.Stats, error) {
	const op = "repository/Stats"

	cont, err := r.store.Load(ctx)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.CountStats(cont.Comments), nil
}

// mutate выполняет цикл load → fn → save под мьютексом.
// При storage.ErrConflict цикл повторяется до maxRetries раз.
// Ошибка fn прерывает цикл без сохранения.
func (r *Repository) mutate(ctx context.Context, op string, fn func(*models.Container) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		var cont *models.Container
		cont, err = r.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("%s: load: %w", op, err)
		}

		if err = fn(cont); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		err = r.store.Save(ctx, cont)
		if err == nil {
			return nil
		}

		if !errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("%s: save: %w", op, err)
		}

		log.From(ctx).Warn("container revision conflict, retrying",
			"op", op, "attempt", attempt+1, "version", cont.Version)
	}

	return fmt.Errorf("%s: retries exhausted: %w", op, err)
}
