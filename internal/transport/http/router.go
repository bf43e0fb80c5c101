package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pribylovaa/site-comments/internal/metrics"
	"github.com/pribylovaa/site-comments/internal/transport/http/handlers"
	"github.com/pribylovaa/site-comments/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.

	// AllowedOrigins — CORS для публичных маршрутов.
	AllowedOrigins []string
	// ModerationToken — Bearer-токен административных маршрутов.
	ModerationToken string
	// RatePerMinute/RateBurst — ограничение отправок с одного IP; 0 отключает.
	RatePerMinute float64
	RateBurst     int

	// TrustProxy — лимит по X-Forwarded-For вместо адреса соединения.
	TrustProxy bool
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc handlers.Comments, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),             // безопасно ловим паники
		middleware.RequestID(),           // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),  // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(opts.Metrics), // латентность по шаблону маршрута
		middleware.Timeout(opts.Timeout), // общий дедлайн запроса
	)

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, opts)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, opts)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// public: форма на страницах сайта и лента комментариев.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		r.With(middleware.RateLimit(opts.RatePerMinute, opts.RateBurst, opts.TrustProxy)).Post("/comments", h.SubmitComment)
		r.Get("/comments", h.ListPublic)
		// preflight отвечает cors.Handler; маршрут нужен, чтобы запрос дошёл до middleware группы.
		r.Options("/comments", func(http.ResponseWriter, *http.Request) {})
	})

	// admin: только с токеном модератора.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.ModeratorAuth(opts.ModerationToken))

		r.Get("/stats", h.Stats)
		r.Post("/moderate", h.Moderate)

		r.Get("/comments", h.ListAdmin)
		r.Get("/comments/{id}", h.GetComment)
		r.Patch("/comments/{id}", h.Patch)
		r.Delete("/comments/{id}", h.Delete)
		r.Post("/comments/{id}/approve", h.Approve)
		r.Post("/comments/{id}/reject", h.Reject)
	})
}
