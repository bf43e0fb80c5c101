package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/pkg/log"
)

// Action — решение модератора. Набор вариантов закрыт: Approve и Reject.
type Action interface {
	// Name возвращает имя действия в протоколе ("approve"/"reject").
	Name() string
	patch(moderator string) models.CommentPatch
}

// Approve одобряет комментарий и снимает спам-флаг.
type Approve struct{}

// Reject отклоняет комментарий; пустая Reason оставляет прежнюю причину.
type Reject struct {
	Reason string
}

func (Approve) Name() string { return "approve" }
func (Reject) Name() string  { return "reject" }

func (Approve) patch(moderator string) models.CommentPatch {
	status := models.StatusApproved
	flagged := false

	return models.CommentPatch{Status: &status, Flagged: &flagged, ModeratedBy: &moderator}
}

func (a Reject) patch(moderator string) models.CommentPatch {
	status := models.StatusRejected
	p := models.CommentPatch{Status: &status, ModeratedBy: &moderator}

	if reason := strings.TrimSpace(a.Reason); reason != "" {
		p.RejectionReason = &reason
	}

	return p
}

// ParseAction разбирает имя действия из запроса. reason учитывается только для reject.
func ParseAction(name, reason string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "approve":
		return Approve{}, nil
	case "reject":
		return Reject{Reason: reason}, nil
	default:
		return nil, fmt.Errorf("service/moderation/ParseAction: %w", invalid("unknown action %q", name))
	}
}

// Moderate применяет решение модератора. Переход допустим из любого статуса
// и идемпотентен; moderatedAt проставляется при каждом вызове.
// Пустой moderator заменяется именем из конфигурации.
func (s *Service) Moderate(ctx context.Context, id string, action Action, moderator string) (*models.Comment, error) {
	const op = "service/moderation/Moderate"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, invalid("id is required"))
	}

	if action == nil {
		lg.Warn("invalid argument: empty action")
		return nil, fmt.Errorf("%s: %w", op, invalid("action is required"))
	}

	moderator = strings.TrimSpace(moderator)
	if moderator == "" {
		moderator = s.cfg.Moderation.Moderator
	}

	lg = lg.With("action", action.Name(), "moderator", moderator)

	out, err := s.repo.Update(ctx, id, action.patch(moderator))
	if err != nil {
		return nil, s.mapStorageErr(lg, op, err)
	}

	lg.Info("comment moderated", "status", out.Status, "page", out.PageID)
	s.metrics.Moderation(action.Name())

	return out, nil
}

// Delete удаляет комментарий безвозвратно. false — комментария не было.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	const op = "service/moderation/Delete"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return false, fmt.Errorf("%s: %w", op, invalid("id is required"))
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, s.mapStorageErr(lg, op, err)
	}

	if ok {
		lg.Info("comment deleted")
		s.metrics.Moderation("delete")
	}

	return ok, nil
}

// Update исправляет поля комментария. Передаются только изменяемые поля;
// текстовые поля очищаются так же, как при приёме.
func (s *Service) Update(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error) {
	const op = "service/moderation/Update"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, invalid("id is required"))
	}

	if patch.Empty() {
		lg.Warn("invalid argument: empty patch")
		return nil, fmt.Errorf("%s: %w", op, invalid("nothing to update"))
	}

	if patch.Status != nil && !patch.Status.Valid() {
		lg.Warn("invalid argument: unknown status", "status", *patch.Status)
		return nil, fmt.Errorf("%s: %w", op, invalid("unknown status %q", *patch.Status))
	}

	limit := s.cfg.Limits.MaxFieldLength
	if limit <= 0 {
		limit = defaultMaxFieldLength
	}

	clean := func(f *string) *string {
		if f == nil {
			return nil
		}
		v := Sanitize(*f, limit)
		return &v
	}

	patch.Name = clean(patch.Name)
	patch.Email = clean(patch.Email)
	patch.Message = clean(patch.Message)
	patch.PageTitle = clean(patch.PageTitle)
	patch.RejectionReason = clean(patch.RejectionReason)

	if patch.Message != nil && *patch.Message == "" {
		lg.Warn("invalid argument: empty message")
		return nil, fmt.Errorf("%s: %w", op, invalid("message cannot be empty"))
	}

	if patch.Name != nil && *patch.Name == "" {
		anon := AnonymousName
		patch.Name = &anon
	}

	if patch.PageID != nil {
		page := strings.TrimSpace(*patch.PageID)
		patch.PageID = &page
	}

	out, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, s.mapStorageErr(lg, op, err)
	}

	lg.Info("comment updated", "status", out.Status)
	s.metrics.Moderation("update")

	return out, nil
}
