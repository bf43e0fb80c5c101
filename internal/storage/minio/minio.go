// minio — хранилище контейнера в объектном хранилище MinIO/S3.
// Контейнер лежит одним JSON-объектом <prefix><scope>.json в формате storage.Encode.
// Ревизия контейнера дублируется в user-metadata объекта, а перезапись
// выполняется условным PUT (If-Match по ETag), поэтому параллельные писатели
// из разных процессов получают storage.ErrConflict вместо потери данных.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/storage"
)

// ObjectStore — адаптер MinIO для контейнера комментариев.
type ObjectStore struct {
	client *mclient.Client
	bucket string
	key    string
}

// New создает и инициализирует клиент MinIO.
// Делает endpoint-перенастройку (убирает схему), подбирает Secure по схеме
// и выполняет fail-fast-проверку доступности бакета.
func New(ctx context.Context, cfg *config.Config) (*ObjectStore, error) {
	const op = "storage/minio/New"

	s3 := cfg.Store.S3
	endpoint := s3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(s3.RootUser, s3.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, s3.Bucket)
	}

	return &ObjectStore{
		client: client,
		bucket: s3.Bucket,
		key:    objectKey(s3.Prefix, cfg.Store.Scope),
	}, nil
}

// Key возвращает ключ объекта контейнера.
func (s *ObjectStore) Key() string { return s.key }

// Ping проверяет доступность бакета (для /healthz).
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func objectKey(prefix, scope string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return prefix + scope + ".json"
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Store = (*ObjectStore)(nil)
