package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/pkg/log"
)

// ListPublic возвращает ленту страницы: только approved и не flagged,
// по возрастанию времени создания, в минимальной проекции.
func (s *Service) ListPublic(ctx context.Context, page string) ([]models.PublicComment, error) {
	const op = "service/queries/ListPublic"

	page = strings.TrimSpace(page)
	lg := log.From(ctx).With("op", op, "page", page)

	if page == "" {
		lg.Warn("invalid argument: empty page")
		return nil, fmt.Errorf("%s: %w", op, invalid("page is required"))
	}

	items, err := s.repo.List(ctx, models.Filter{PageID: page, Status: models.FilterApproved})
	if err != nil {
		return nil, s.mapStorageErr(lg, op, err)
	}

	out := make([]models.PublicComment, 0, len(items))
	for _, c := range items {
		if !c.Public() {
			continue
		}

		v := c.PublicView()
		out = append(out, models.PublicComment{Name: v.Name, Message: v.Message, CreatedAt: v.CreatedAt})
	}

	return out, nil
}

// ListAdmin возвращает полные записи для панели модерации.
func (s *Service) ListAdmin(ctx context.Context, f models.Filter) ([]models.Comment, error) {
	const op = "service/queries/ListAdmin"

	f.PageID = strings.TrimSpace(f.PageID)
	lg := log.From(ctx).With("op", op, "page", f.PageID, "status", string(f.Status))

	st, err := models.ParseStatusFilter(string(f.Status))
	if err != nil {
		lg.Warn("invalid argument: unknown status filter")
		return nil, fmt.Errorf("%s: %w", op, invalid("%s", err.Error()))
	}
	f.Status = st

	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, s.mapStorageErr(lg, op, err)
	}

	return items, nil
}

// CommentByID возвращает полную запись комментария.
func (s *Service) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	const op = "service/queries/CommentByID"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, invalid("id is required"))
	}

	c, err := s.repo.CommentByID(ctx, id)
	if err != nil {
		return nil, s.mapStorageErr(lg, op, err)
	}

	return c, nil
}

// Stats возвращает агрегаты по всем комментариям.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	const op = "service/queries/Stats"

	st, err := s.repo.Stats(ctx)
	if err != nil {
		return models.Stats{}, s.mapStorageErr(log.From(ctx).With("op", op), op, err)
	}

	return st, nil
}
