package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/site-comments/internal/config"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultDBName = "comments"

// Mongo — хранилище контейнера в MongoDB: один документ на scope (_id = scope).
type Mongo struct {
	client     *mongodriver.Client
	db         *mongodriver.Database
	containers *mongodriver.Collection
	scope      string
}

// New подключается к MongoDB, проверяет соединение и готовит коллекцию.
func New(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	mc := cfg.Store.Mongo
	if mc.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.Store.Mongo.URL")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(mc.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(mc.URL))

	return &Mongo{
		client:     cli,
		db:         db,
		containers: db.Collection(mc.Collection),
		scope:      cfg.Store.Scope,
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary (для /healthz).
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}
