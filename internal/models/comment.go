// Package models содержит доменные сущности сервиса комментариев.
package models

import (
	"strings"
	"time"
)

// Status — состояние модерации комментария.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid сообщает, является ли значение одним из известных статусов.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Comment — доменная модель комментария к странице сайта.
// Важно:
//   - ID и CreatedAt выставляются при вставке и больше не меняются;
//   - Flagged — результат спам-эвристики, ортогонален Status;
//   - публично виден только Status == approved && !Flagged;
//   - RejectionReason заполнен только при Status == rejected;
//   - ModeratedAt != nil ровно тогда, когда было действие модератора;
//   - IP/UserAgent хранятся только для аудита и наружу не отдаются.
type Comment struct {
	ID              string
	Name            string
	Email           string
	Message         string
	PageID          string
	PageTitle       string
	CreatedAt       time.Time
	Status          Status
	Flagged         bool
	ModeratedAt     *time.Time
	ModeratedBy     string
	RejectionReason string
	IP              string
	UserAgent       string
}

// Public сообщает, виден ли комментарий анонимным читателям.
func (c Comment) Public() bool {
	return c.Status == StatusApproved && !c.Flagged
}

// PublicView — проекция для публичной выдачи: email всегда пустой,
// flagged всегда false, аудиторские поля не копируются.
func (c Comment) PublicView() Comment {
	return Comment{
		ID:        c.ID,
		Name:      c.Name,
		Message:   c.Message,
		PageID:    c.PageID,
		PageTitle: c.PageTitle,
		CreatedAt: c.CreatedAt,
		Status:    c.Status,
	}
}

// PublicComment — минимальная запись публичной ленты страницы.
type PublicComment struct {
	Name      string
	Message   string
	CreatedAt time.Time
}

// CommentPatch — явное частичное обновление: nil-поле не трогается.
type CommentPatch struct {
	Name            *string
	Email           *string
	Message         *string
	PageID          *string
	PageTitle       *string
	Status          *Status
	Flagged         *bool
	ModeratedBy     *string
	RejectionReason *string
}

// TouchesModeration сообщает, затрагивает ли патч поля модерации.
func (p CommentPatch) TouchesModeration() bool {
	return p.Status != nil || p.Flagged != nil
}

// Empty сообщает, что в патче нет ни одного поля.
func (p CommentPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Message == nil &&
		p.PageID == nil && p.PageTitle == nil && p.Status == nil &&
		p.Flagged == nil && p.ModeratedBy == nil && p.RejectionReason == nil
}

// Apply накладывает патч на копию комментария и возвращает результат.
// now используется для ModeratedAt, если патч затрагивает модерацию.
func (p CommentPatch) Apply(c Comment, now time.Time) Comment {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Message != nil {
		c.Message = *p.Message
	}
	if p.PageID != nil {
		c.PageID = *p.PageID
	}
	if p.PageTitle != nil {
		c.PageTitle = *p.PageTitle
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Flagged != nil {
		c.Flagged = *p.Flagged
	}
	if p.ModeratedBy != nil {
		c.ModeratedBy = *p.ModeratedBy
	}
	if p.RejectionReason != nil {
		c.RejectionReason = strings.TrimSpace(*p.RejectionReason)
	}

	if p.TouchesModeration() {
		at := now.UTC()
		c.ModeratedAt = &at
	}

	// Причина отклонения имеет смысл только для rejected.
	if c.Status != StatusRejected {
		c.RejectionReason = ""
	}

	return c
}
