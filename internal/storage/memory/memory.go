// memory — хранилище контейнера в памяти процесса.
// Используется в тестах и в локальном окружении (store.driver = memory).
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/storage"
)

// Store хранит снимок контейнера; наружу всегда отдаются копии.
type Store struct {
	mu   sync.RWMutex
	data *models.Container
	now  func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{now: time.Now}
}

// NewWith создаёт хранилище с предзаполненным контейнером (для тестов).
func NewWith(c *models.Container) *Store {
	return &Store{data: c.Clone(), now: time.Now}
}

// Load возвращает копию текущего контейнера или пустой контейнер.
func (s *Store) Load(ctx context.Context) (*models.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data == nil {
		return models.NewContainer(), nil
	}

	return s.data.Clone(), nil
}

// Save заменяет снимок, если ревизия совпадает с сохранённой.
func (s *Store) Save(ctx context.Context, c *models.Container) error {
	const op = "storage/memory/Save"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current uint64
	if s.data != nil {
		current = s.data.Version
	}

	if c.Version != current {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	c.LastModified = s.now().UTC()
	c.Version = current + 1
	c.Schema = models.SchemaVersion
	s.data = c.Clone()

	return nil
}

var _ storage.Store = (*Store)(nil)
