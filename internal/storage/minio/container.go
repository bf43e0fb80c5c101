package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	mclient "github.com/minio/minio-go/v7"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/storage"
	"github.com/pribylovaa/site-comments/pkg/log"
)

// revisionMeta — ключ user-metadata с ревизией контейнера.
const revisionMeta = "Revision"

// head описывает текущее состояние объекта.
type head struct {
	exists   bool
	etag     string
	revision uint64
}

// Load читает объект. Отсутствующий объект даёт пустой контейнер;
// повреждённый — пустой контейнер с ревизией объекта.
func (s *ObjectStore) Load(ctx context.Context) (*models.Container, error) {
	const op = "storage/minio/Load"

	obj, err := s.client.GetObject(ctx, s.bucket, s.key, mclient.GetObjectOptions{})
	if err != nil {
		return nil, s.fault(ctx, op, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return models.NewContainer(), nil
		}

		return nil, s.fault(ctx, op, err)
	}

	c, err := storage.Decode(data)
	if err != nil {
		log.From(ctx).Warn("comments object corrupted, starting empty",
			"op", op, "bucket", s.bucket, "key", s.key, "err", err)

		empty := models.NewContainer()
		if h, herr := s.stat(ctx); herr == nil {
			empty.Version = h.revision
		}

		return empty, nil
	}

	return c, nil
}

// Save перезаписывает объект, если его ревизия равна c.Version.
// Существующий объект заменяется условным PUT по ETag, новый создаётся
// с If-None-Match: *; 412 от сервера означает конфликт.
func (s *ObjectStore) Save(ctx context.Context, c *models.Container) error {
	const op = "storage/minio/Save"

	h, err := s.stat(ctx)
	if err != nil {
		return s.fault(ctx, op, err)
	}

	if h.revision != c.Version {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	next := *c
	next.LastModified = time.Now().UTC()
	next.Version = c.Version + 1
	next.Schema = models.SchemaVersion

	data, err := storage.Encode(&next)
	if err != nil {
		return fmt.Errorf("%s: encode: %w: %w", op, storage.ErrStorageFault, err)
	}

	opts := mclient.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{revisionMeta: strconv.FormatUint(next.Version, 10)},
	}
	if h.exists {
		opts.SetMatchETag(h.etag)
	} else {
		opts.SetMatchETagExcept("*")
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		if mclient.ToErrorResponse(err).StatusCode == http.StatusPreconditionFailed {
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		}

		return s.fault(ctx, op, err)
	}

	c.LastModified = next.LastModified
	c.Version = next.Version
	c.Schema = next.Schema

	return nil
}

// stat возвращает ETag и ревизию объекта. Объект без метаданных
// (записанный вручную) считается ревизией 0.
func (s *ObjectStore) stat(ctx context.Context) (head, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.key, mclient.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return head{}, nil
		}

		return head{}, err
	}

	h := head{exists: true, etag: info.ETag}
	if v, ok := info.UserMetadata[revisionMeta]; ok {
		h.revision, _ = strconv.ParseUint(v, 10, 64)
	}

	return h, nil
}

func (s *ObjectStore) fault(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, ctxErr)
	}

	return fmt.Errorf("%s: %w: %w", op, storage.ErrStorageFault, err)
}

func isNotFound(err error) bool {
	resp := mclient.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
