// file — хранилище контейнера в JSON-файле на локальном диске.
// Запись атомарна: данные пишутся во временный файл в том же каталоге,
// синхронизируются на диск и переименовываются поверх основного файла.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/storage"
	"github.com/pribylovaa/site-comments/pkg/log"
)

// Store — файловое хранилище одного контейнера.
type Store struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// New возвращает хранилище для файла path; каталог создаётся при необходимости.
func New(path string) (*Store, error) {
	const op = "storage/file/New"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{path: path, now: time.Now}, nil
}

// Path возвращает путь к файлу данных.
func (s *Store) Path() string { return s.path }

// Load читает файл. Отсутствующий или нечитаемый файл даёт пустой контейнер.
func (s *Store) Load(ctx context.Context) (*models.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.read(ctx), nil
}

func (s *Store) read(ctx context.Context) *models.Container {
	const op = "storage/file/Load"

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.From(ctx).Warn("comments file unreadable, starting empty",
				"op", op, "path", s.path, "err", err)
		}

		return models.NewContainer()
	}

	c, err := storage.Decode(data)
	if err != nil {
		log.From(ctx).Warn("comments file corrupted, starting empty",
			"op", op, "path", s.path, "err", err)

		return models.NewContainer()
	}

	return c
}

// Save сверяет ревизию с файлом и атомарно заменяет его.
func (s *Store) Save(ctx context.Context, c *models.Container) error {
	const op = "storage/file/Save"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.read(ctx)
	if current.Version != c.Version {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	next := *c
	next.LastModified = s.now().UTC()
	next.Version = c.Version + 1
	next.Schema = models.SchemaVersion

	data, err := storage.Encode(&next)
	if err != nil {
		return fmt.Errorf("%s: encode: %w: %w", op, storage.ErrStorageFault, err)
	}

	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
	}

	c.LastModified = next.LastModified
	c.Version = next.Version
	c.Schema = next.Schema

	return nil
}

// writeAtomic пишет data во временный файл и переименовывает его в path.
// При любой ошибке исходный файл остаётся нетронутым.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

var _ storage.Store = (*Store)(nil)
