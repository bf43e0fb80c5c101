package models

import (
	"sort"
	"time"
)

// SchemaVersion — текущая версия формата хранения контейнера.
// 1 — исходный формат (version "1.0", флаг approved); 2 — Status + ревизия.
const SchemaVersion = 2

// Container — весь набор комментариев одного сайта.
// Version — ревизия, увеличивается при каждом сохранении и используется
// для compare-and-swap в хранилищах, которые это поддерживают.
type Container struct {
	Comments     []Comment
	LastModified time.Time
	Version      uint64
	Schema       int
}

// NewContainer возвращает пустой контейнер текущей схемы.
func NewContainer() *Container {
	return &Container{
		Comments:     []Comment{},
		LastModified: time.Now().UTC(),
		Schema:       SchemaVersion,
	}
}

// Index возвращает позицию комментария с указанным id или -1.
func (c *Container) Index(id string) int {
	for i := range c.Comments {
		if c.Comments[i].ID == id {
			return i
		}
	}

	return -1
}

// Clone — глубокая копия: вызывающий код может мутировать результат,
// не затрагивая исходный снимок.
func (c *Container) Clone() *Container {
	out := *c
	out.Comments = make([]Comment, len(c.Comments))
	for i, cm := range c.Comments {
		if cm.ModeratedAt != nil {
			at := *cm.ModeratedAt
			cm.ModeratedAt = &at
		}
		out.Comments[i] = cm
	}

	return &out
}

// SortByCreated упорядочивает комментарии по CreatedAt по возрастанию;
// при равенстве времени порядок определяется ID, чтобы выдача была стабильной.
func SortByCreated(items []Comment) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}

		return items[i].ID < items[j].ID
	})
}
