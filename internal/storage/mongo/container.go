package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/storage"
	"github.com/pribylovaa/site-comments/pkg/log"
)

// containerDoc — документ коллекции; _id совпадает со scope сайта.
type containerDoc struct {
	Scope        string       `bson:"_id"`
	Schema       int          `bson:"schema"`
	Version      uint64       `bson:"version"`
	LastModified time.Time    `bson:"last_modified"`
	Comments     []commentDoc `bson:"comments"`
}

type commentDoc struct {
	ID              string     `bson:"id"`
	Name            string     `bson:"name"`
	Email           string     `bson:"email"`
	Message         string     `bson:"message"`
	PageID          string     `bson:"page_id"`
	PageTitle       string     `bson:"page_title"`
	CreatedAt       time.Time  `bson:"created_at"`
	Status          string     `bson:"status"`
	Flagged         bool       `bson:"flagged"`
	ModeratedAt     *time.Time `bson:"moderated_at,omitempty"`
	ModeratedBy     string     `bson:"moderated_by,omitempty"`
	RejectionReason string     `bson:"rejection_reason,omitempty"`
	IP              string     `bson:"ip,omitempty"`
	UserAgent       string     `bson:"user_agent,omitempty"`
}

// Load читает документ scope. Отсутствующий документ даёт пустой контейнер;
// нераскодируемый — пустой контейнер с ревизией документа, чтобы первое же
// сохранение перезаписало его.
func (m *Mongo) Load(ctx context.Context) (*models.Container, error) {
	const op = "storage/mongo/Load"

	raw, err := m.containers.FindOne(ctx, bson.M{"_id": m.scope}).Raw()
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return models.NewContainer(), nil
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
	}

	var doc containerDoc
	if err := bson.Unmarshal(raw, &doc); err != nil {
		log.From(ctx).Warn("container document corrupted, starting empty",
			"op", op, "scope", m.scope, "err", err)

		empty := models.NewContainer()
		if v, ok := raw.Lookup("version").AsInt64OK(); ok && v > 0 {
			empty.Version = uint64(v)
		}

		return empty, nil
	}

	return fromDoc(doc), nil
}

// Save заменяет документ, если его version равна c.Version.
// Первое сохранение (c.Version == 0) вставляет документ; повторная вставка
// того же _id даёт duplicate key, что тоже означает конфликт.
func (m *Mongo) Save(ctx context.Context, c *models.Container) error {
	const op = "storage/mongo/Save"

	next := *c
	next.LastModified = time.Now().UTC().Truncate(time.Millisecond)
	next.Version = c.Version + 1
	next.Schema = models.SchemaVersion

	doc := toDoc(m.scope, &next)

	if c.Version == 0 {
		_, err := m.containers.InsertOne(ctx, doc)
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}

		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
		}
	} else {
		res, err := m.containers.ReplaceOne(ctx, bson.M{"_id": m.scope, "version": c.Version}, doc)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
		}

		if res.MatchedCount == 0 {
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}
	}

	c.LastModified = next.LastModified
	c.Version = next.Version
	c.Schema = next.Schema

	return nil
}

func toDoc(scope string, c *models.Container) containerDoc {
	doc := containerDoc{
		Scope:        scope,
		Schema:       c.Schema,
		Version:      c.Version,
		LastModified: c.LastModified,
		Comments:     make([]commentDoc, 0, len(c.Comments)),
	}

	for _, cm := range c.Comments {
		doc.Comments = append(doc.Comments, commentDoc{
			ID:              cm.ID,
			Name:            cm.Name,
			Email:           cm.Email,
			Message:         cm.Message,
			PageID:          cm.PageID,
			PageTitle:       cm.PageTitle,
			CreatedAt:       cm.CreatedAt,
			Status:          string(cm.Status),
			Flagged:         cm.Flagged,
			ModeratedAt:     cm.ModeratedAt,
			ModeratedBy:     cm.ModeratedBy,
			RejectionReason: cm.RejectionReason,
			IP:              cm.IP,
			UserAgent:       cm.UserAgent,
		})
	}

	return doc
}

func fromDoc(doc containerDoc) *models.Container {
	out := &models.Container{
		Comments:     make([]models.Comment, 0, len(doc.Comments)),
		LastModified: doc.LastModified.UTC(),
		Version:      doc.Version,
		Schema:       doc.Schema,
	}

	for _, d := range doc.Comments {
		c := models.Comment{
			ID:              d.ID,
			Name:            d.Name,
			Email:           d.Email,
			Message:         d.Message,
			PageID:          d.PageID,
			PageTitle:       d.PageTitle,
			CreatedAt:       d.CreatedAt,
			Status:          models.Status(d.Status),
			Flagged:         d.Flagged,
			ModeratedBy:     d.ModeratedBy,
			RejectionReason: d.RejectionReason,
			IP:              d.IP,
			UserAgent:       d.UserAgent,
		}

		if d.ModeratedAt != nil {
			at := d.ModeratedAt.UTC()
			c.ModeratedAt = &at
		}

		out.Comments = append(out.Comments, storage.NormalizeComment(c))
	}

	return out
}

var _ storage.Store = (*Mongo)(nil)
