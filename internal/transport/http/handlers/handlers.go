package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/site-comments/internal/models"
	"github.com/pribylovaa/site-comments/internal/service"
)

// maxBodyBytes — предел тела запроса.
const maxBodyBytes = 64 << 10

// Comments — операции сервиса, которые нужны HTTP-слою.
type Comments interface {
	Ingest(ctx context.Context, in service.Submission) (service.IngestResult, error)
	ListPublic(ctx context.Context, page string) ([]models.PublicComment, error)
	ListAdmin(ctx context.Context, f models.Filter) ([]models.Comment, error)
	CommentByID(ctx context.Context, id string) (*models.Comment, error)
	Stats(ctx context.Context) (models.Stats, error)
	Moderate(ctx context.Context, id string, action service.Action, moderator string) (*models.Comment, error)
	Update(ctx context.Context, id string, patch models.CommentPatch) (*models.Comment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Handlers агрегирует зависимости HTTP-хендлеров.
type Handlers struct {
	Comments Comments
}

func New(c Comments) *Handlers {
	return &Handlers{Comments: c}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
