package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/site-comments/internal/models"
)

// Формат JSON-документа общий для файлового хранилища и объектного (MinIO).
// Документ схемы 1 (исходный формат сайта) выглядит так:
//
//	{"comments":[{"id":..,"date":..,"approved":true,"flagged":false,...}],
//	 "lastModified":"..","version":"1.0"}
//
// Схема 2 добавляет status, revision и schema, а version становится числом.
// Декодер читает обе схемы; кодер всегда пишет текущую.

type document struct {
	Comments     []record    `json:"comments"`
	LastModified time.Time   `json:"lastModified"`
	Version      flexVersion `json:"version"`
	Schema       int         `json:"schema,omitempty"`
}

type record struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Message         string     `json:"message"`
	Page            string     `json:"page"`
	PageTitle       string     `json:"pageTitle"`
	Date            time.Time  `json:"date"`
	Status          string     `json:"status,omitempty"`
	Approved        *bool      `json:"approved,omitempty"`
	Flagged         bool       `json:"flagged"`
	IP              string     `json:"ip,omitempty"`
	UserAgent       string     `json:"userAgent,omitempty"`
	ModeratedAt     *time.Time `json:"moderatedAt,omitempty"`
	ModeratedBy     string     `json:"moderatedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

// flexVersion принимает как число (схема 2), так и строку вида "1.0" (схема 1).
type flexVersion struct {
	Revision uint64
	Legacy   bool
}

func (v flexVersion) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(v.Revision, 10)), nil
}

func (v *flexVersion) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	if b[0] == '"' {
		// Строковая версия — исходный формат; ревизий в нём не было.
		v.Legacy = true
		v.Revision = 0
		return nil
	}

	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}

	v.Revision = n
	return nil
}

// Encode сериализует контейнер в JSON текущей схемы.
func Encode(c *models.Container) ([]byte, error) {
	doc := document{
		Comments:     make([]record, 0, len(c.Comments)),
		LastModified: c.LastModified.UTC(),
		Version:      flexVersion{Revision: c.Version},
		Schema:       models.SchemaVersion,
	}

	for _, cm := range c.Comments {
		doc.Comments = append(doc.Comments, record{
			ID:              cm.ID,
			Name:            cm.Name,
			Email:           cm.Email,
			Message:         cm.Message,
			Page:            cm.PageID,
			PageTitle:       cm.PageTitle,
			Date:            cm.CreatedAt.UTC(),
			Status:          string(cm.Status),
			Flagged:         cm.Flagged,
			IP:              cm.IP,
			UserAgent:       cm.UserAgent,
			ModeratedAt:     cm.ModeratedAt,
			ModeratedBy:     cm.ModeratedBy,
			RejectionReason: cm.RejectionReason,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Decode разбирает JSON-документ любой поддерживаемой схемы.
func Decode(data []byte) (*models.Container, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := &models.Container{
		Comments:     make([]models.Comment, 0, len(doc.Comments)),
		LastModified: doc.LastModified.UTC(),
		Version:      doc.Version.Revision,
		Schema:       doc.Schema,
	}
	if doc.Version.Legacy || out.Schema == 0 {
		out.Schema = 1
	}

	for _, r := range doc.Comments {
		out.Comments = append(out.Comments, fromRecord(r))
	}

	return out, nil
}

// fromRecord переводит запись в доменную модель, подставляя разумные
// значения по умолчанию для полей, которых не было в старых документах.
func fromRecord(r record) models.Comment {
	c := models.Comment{
		ID:              r.ID,
		Name:            r.Name,
		Email:           r.Email,
		Message:         r.Message,
		PageID:          r.Page,
		PageTitle:       r.PageTitle,
		CreatedAt:       r.Date.UTC(),
		Status:          models.Status(strings.ToLower(r.Status)),
		Flagged:         r.Flagged,
		IP:              r.IP,
		UserAgent:       r.UserAgent,
		ModeratedBy:     r.ModeratedBy,
		RejectionReason: r.RejectionReason,
	}

	if r.ModeratedAt != nil && !r.ModeratedAt.IsZero() {
		at := r.ModeratedAt.UTC()
		c.ModeratedAt = &at
	}

	if !c.Status.Valid() {
		c.Status = legacyStatus(r)
	}

	return NormalizeComment(c)
}

// legacyStatus выводит статус записи схемы 1 по флагу approved:
// одобренные — approved; неодобренные, но уже просмотренные модератором
// (есть moderatedAt или причина) — rejected; остальные — pending.
func legacyStatus(r record) models.Status {
	switch {
	case r.Approved != nil && *r.Approved:
		return models.StatusApproved
	case r.RejectionReason != "" || (r.ModeratedAt != nil && !r.ModeratedAt.IsZero()):
		return models.StatusRejected
	default:
		return models.StatusPending
	}
}

// NormalizeComment приводит прочитанную из хранилища запись к инвариантам модели.
func NormalizeComment(c models.Comment) models.Comment {
	if !c.Status.Valid() {
		c.Status = models.StatusPending
	}

	if c.Status != models.StatusRejected {
		c.RejectionReason = ""
	}

	c.CreatedAt = c.CreatedAt.UTC()
	return c
}
