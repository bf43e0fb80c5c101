package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/pribylovaa/site-comments/internal/service"
	"github.com/pribylovaa/site-comments/internal/transport/http/apierrors"
	"github.com/pribylovaa/site-comments/internal/transport/http/middleware"
)

// SubmitComment принимает отправку формы (urlencoded/multipart) или JSON.
// Поле website — honeypot. Ответ всегда {"accepted":true}, кроме ошибок валидации.
func (h *Handlers) SubmitComment(w http.ResponseWriter, r *http.Request) {
	in, err := parseSubmission(w, r)
	if err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err))
		return
	}

	in.IP = middleware.ClientIP(r)
	in.UserAgent = r.Header.Get("User-Agent")
	if in.UserAgent == "" {
		in.UserAgent = "unknown"
	}

	res, err := h.Comments.Ingest(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Accepted: res.Accepted})
}

func parseSubmission(w http.ResponseWriter, r *http.Request) (service.Submission, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if ct == "application/json" {
		var req submitRequest
		if err := decodeStrict(w, r, &req); err != nil {
			return service.Submission{}, err
		}

		return service.Submission{
			Name:      req.Name,
			Email:     req.Email,
			Message:   req.Message,
			PageID:    req.Page,
			PageTitle: req.PageTitle,
			Honeypot:  req.Website,
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return service.Submission{}, err
		}
	} else if err := r.ParseForm(); err != nil {
		return service.Submission{}, err
	}

	return service.Submission{
		Name:      r.PostFormValue("name"),
		Email:     r.PostFormValue("email"),
		Message:   r.PostFormValue("message"),
		PageID:    r.PostFormValue("page-url"),
		PageTitle: r.PostFormValue("page-title"),
		Honeypot:  r.PostFormValue("website"),
	}, nil
}

// ListPublic отдаёт ленту страницы: GET /comments?page=/p1.
func (h *Handlers) ListPublic(w http.ResponseWriter, r *http.Request) {
	items, err := h.Comments.ListPublic(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]publicComment, 0, len(items))
	for _, c := range items {
		out = append(out, publicComment{Name: c.Name, Message: c.Message, CreatedAt: c.CreatedAt})
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, out)
}
