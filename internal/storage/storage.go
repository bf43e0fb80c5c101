package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/site-comments/internal/models"
)

var (
	// ErrStorageFault — ошибка ввода-вывода при сохранении контейнера.
	ErrStorageFault = errors.New("storage fault")
	// ErrConflict — контейнер изменён параллельно (не совпала ревизия Version).
	ErrConflict = errors.New("conflict")
)

// Store описывает хранилище контейнера комментариев одного сайта.
// Контейнер читается и записывается целиком.
type Store interface {
	// Load возвращает текущий контейнер.
	// Отсутствующий или повреждённый ресурс не считается ошибкой:
	// возвращается пустой контейнер текущей схемы (Version = 0).
	// Ошибка возвращается при отмене ctx или недоступности
	// хранилища (ErrStorageFault). Недоступный сетевой бэкенд (mongo, minio)
	// сознательно не маскируется пустым контейнером: пустой снимок с
	// Version = 0 нельзя отличить от нового сайта, а ошибка видна вызывающему.
	// Файловое и in-memory хранилища ошибку чтения не возвращают никогда.
	Load(ctx context.Context) (*models.Container, error)

	// Save атомарно сохраняет контейнер целиком.
	// Реализация проставляет LastModified и увеличивает Version на единицу;
	// запись происходит только если сохранённая ревизия равна c.Version
	// на момент вызова, иначе ErrConflict. Прочие сбои — ErrStorageFault.
	// Неудачная запись не портит ранее сохранённое состояние.
	Save(ctx context.Context, c *models.Container) error
}
