// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/site-comments/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrUnauthorized — нет или неверный токен модератора.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited — превышена частота отправки.
	ErrRateLimited = errors.New("rate limited")
	// ErrBadRequest — тело или параметры запроса не разбираются.
	ErrBadRequest = errors.New("bad request")
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal;
//   - ошибки валидации отдают сообщение из service.ValidationError;
//   - сбои хранилища и прочие внутренние ошибки не раскрывают деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)

	var verr *service.ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		msg = verr.Message
	}

	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// base — маппинг ошибок сервиса -> HTTP/FE-код/сообщение:
//   - ErrValidation, ErrBadRequest -> 400
//   - ErrUnauthorized -> 401
//   - ErrNotFound -> 404
//   - ErrConflict -> 409 (параллельные изменения, можно повторить)
//   - ErrRateLimited -> 429
//   - context.Canceled -> 499
//   - ErrStorageFault -> 503
//   - context.DeadlineExceeded -> 504
//   - прочее -> 500/internal
func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_argument", "malformed request"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "aborted", "concurrent modification, retry"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "resource_exhausted", "too many requests"
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, "canceled", "canceled"
	case errors.Is(err, service.ErrStorageFault):
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
