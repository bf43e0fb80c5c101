package handlers

import (
	"time"

	"github.com/pribylovaa/site-comments/internal/models"
)

// submitRequest — JSON-вариант отправки формы.
type submitRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Page      string `json:"page"`
	PageTitle string `json:"page_title"`
	Website   string `json:"website"`
}

type submitResponse struct {
	Accepted bool `json:"accepted"`
}

type publicComment struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type commentResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Message         string     `json:"message"`
	Page            string     `json:"page"`
	PageTitle       string     `json:"pageTitle"`
	CreatedAt       time.Time  `json:"createdAt"`
	Status          string     `json:"status"`
	Flagged         bool       `json:"flagged"`
	ModeratedAt     *time.Time `json:"moderatedAt,omitempty"`
	ModeratedBy     string     `json:"moderatedBy,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	IP              string     `json:"ip,omitempty"`
	UserAgent       string     `json:"userAgent,omitempty"`
}

type listResponse struct {
	Comments []commentResponse `json:"comments"`
	Total    int               `json:"total"`
}

type statsResponse struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Flagged  int `json:"flagged"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// moderateRequest — запрос панели модерации: action ∈ approve|reject|delete.
type moderateRequest struct {
	Action    string `json:"action"`
	CommentID string `json:"commentId"`
	Reason    string `json:"reason"`
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

// patchRequest — частичное обновление: отсутствующее поле не меняется.
type patchRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Message         *string `json:"message"`
	Page            *string `json:"page"`
	PageTitle       *string `json:"pageTitle"`
	Status          *string `json:"status"`
	Flagged         *bool   `json:"flagged"`
	RejectionReason *string `json:"rejectionReason"`
}

func (p patchRequest) toModel(moderator string) models.CommentPatch {
	out := models.CommentPatch{
		Name:            p.Name,
		Email:           p.Email,
		Message:         p.Message,
		PageID:          p.Page,
		PageTitle:       p.PageTitle,
		Flagged:         p.Flagged,
		RejectionReason: p.RejectionReason,
	}

	if p.Status != nil {
		st := models.Status(*p.Status)
		out.Status = &st
	}

	if out.TouchesModeration() && moderator != "" {
		out.ModeratedBy = &moderator
	}

	return out
}

func toCommentResponse(c models.Comment) commentResponse {
	return commentResponse{
		ID:              c.ID,
		Name:            c.Name,
		Email:           c.Email,
		Message:         c.Message,
		Page:            c.PageID,
		PageTitle:       c.PageTitle,
		CreatedAt:       c.CreatedAt,
		Status:          string(c.Status),
		Flagged:         c.Flagged,
		ModeratedAt:     c.ModeratedAt,
		ModeratedBy:     c.ModeratedBy,
		RejectionReason: c.RejectionReason,
		IP:              c.IP,
		UserAgent:       c.UserAgent,
	}
}
