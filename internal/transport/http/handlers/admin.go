package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/service"
	"github.com/pribylovaa/site-comments/internal/transport/http/apierrors"
	"github.com/pribylovaa/site-comments/internal/transport/http/middleware"
)

// ListAdmin — GET /admin/comments?page=&status=.
func (h *Handlers) ListAdmin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status, err := models.ParseStatusFilter(q.Get("status"))
	if err != nil {
		apierrors.WriteError(w, r, &service.ValidationError{Message: err.Error()})
		return
	}

	items, err := h.Comments.ListAdmin(r.Context(), models.Filter{PageID: q.Get("page"), Status: status})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := listResponse{Comments: make([]commentResponse, 0, len(items)), Total: len(items)}
	for _, c := range items {
		out.Comments = append(out.Comments, toCommentResponse(c))
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, out)
}

// GetComment — GET /admin/comments/{id}.
func (h *Handlers) GetComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.Comments.CommentByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(*c))
}

// Stats — GET /admin/stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Comments.Stats(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Total:    st.Total,
		Pending:  st.Pending,
		Approved: st.Approved,
		Flagged:  st.Flagged,
	})
}

// Approve — POST /admin/comments/{id}/approve.
func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, chi.URLParam(r, "id"), service.Approve{})
}

// Reject — POST /admin/comments/{id}/reject, тело {"reason": "..."} необязательно.
func (h *Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := decodeStrict(w, r, &req); err != nil {
			apierrors.WriteError(w, r, apierrors.ErrBadRequest)
			return
		}
	}

	h.moderate(w, r, chi.URLParam(r, "id"), service.Reject{Reason: req.Reason})
}

func (h *Handlers) moderate(w http.ResponseWriter, r *http.Request, id string, action service.Action) {
	c, err := h.Comments.Moderate(r.Context(), id, action, middleware.ModeratorFrom(r.Context()))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(*c))
}

// Patch — PATCH /admin/comments/{id}: исправление отдельных полей.
func (h *Handlers) Patch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	c, err := h.Comments.Update(r.Context(), chi.URLParam(r, "id"), req.toModel(middleware.ModeratorFrom(r.Context())))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(*c))
}

// Delete — DELETE /admin/comments/{id}. Неизвестный id даёт 404.
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, chi.URLParam(r, "id"))
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request, id string) {
	ok, err := h.Comments.Delete(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if !ok {
		apierrors.WriteError(w, r, service.ErrNotFound)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Deleted: true})
}

// Moderate — POST /admin/moderate {action, commentId, reason}.
// action=delete удаляет комментарий, approve/reject меняют статус.
func (h *Handlers) Moderate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if err := decodeStrict(w, r, &req); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if strings.EqualFold(strings.TrimSpace(req.Action), "delete") {
		h.delete(w, r, req.CommentID)
		return
	}

	action, err := service.ParseAction(req.Action, req.Reason)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.moderate(w, r, req.CommentID, action)
}
