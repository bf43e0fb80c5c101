package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/site-comments/internal/config"
	"github.com/pribylovaa/site-comments/internal/metrics"
	"github.com/pribylovaa/site-comments/internal/repository"
	"github.com/pribylovaa/site-comments/internal/service"
	"github.com/pribylovaa/site-comments/internal/spam"
	"github.com/pribylovaa/site-comments/internal/storage/memory"
)

const token = "mod-token"

type testServer struct {
	h   http.Handler
	svc *service.Service
}

func newTestServer(t *testing.T, mutate ...func(*Options)) *testServer {
	t.Helper()

	cfg := config.Config{
		Limits:     config.LimitsConfig{MaxFieldLength: 1000},
		Moderation: config.ModerationConfig{Moderator: "moderator"},
	}
	m := metrics.New(prometheus.NewRegistry())
	svc := service.New(repository.New(memory.New(), 2), spam.New(nil, nil), nil, m, cfg)

	opts := Options{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:         m,
		Timeout:         time.Second,
		ModerationToken: token,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	return &testServer{h: NewRouter(svc, opts), svc: svc}
}

func (s *testServer) do(t *testing.T, method, target, contentType, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) admin(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	ct := ""
	if body != "" {
		ct = "application/json"
	}
	return s.do(t, method, target, ct, body, map[string]string{"Authorization": "Bearer " + token})
}

func formBody(v map[string]string) string {
	f := url.Values{}
	for k, val := range v {
		f.Set(k, val)
	}
	return f.Encode()
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

type adminList struct {
	Comments []struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Email           string `json:"email"`
		Page            string `json:"page"`
		Status          string `json:"status"`
		Flagged         bool   `json:"flagged"`
		IP              string `json:"ip"`
		UserAgent       string `json:"userAgent"`
		ModeratedBy     string `json:"moderatedBy"`
		RejectionReason string `json:"rejectionReason"`
	} `json:"comments"`
	Total int `json:"total"`
}

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func TestRouter_FormSubmissionAndModerationFlow(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded",
		formBody(map[string]string{
			"name": "John", "email": "john@mail", "message": "Hello world",
			"page-url": "/p1", "page-title": "Page 1",
		}),
		map[string]string{"X-Forwarded-For": "203.0.113.9", "User-Agent": "test-agent"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.JSONEq(t, `{"accepted":true}`, rr.Body.String())

	// Пока не одобрен — публичная лента пуста.
	rr = s.do(t, http.MethodGet, "/comments?page=/p1", "", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())

	rr = s.admin(t, http.MethodGet, "/admin/comments?status=pending", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[adminList](t, rr)
	require.Equal(t, 1, list.Total)
	c := list.Comments[0]
	require.Equal(t, "john@mail", c.Email)
	require.Equal(t, "/p1", c.Page)
	require.Equal(t, "203.0.113.9", c.IP)
	require.Equal(t, "test-agent", c.UserAgent)

	req := map[string]string{"Authorization": "Bearer " + token, "X-Moderator": "alice"}
	rr = s.do(t, http.MethodPost, "/admin/comments/"+c.ID+"/approve", "", "", req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"moderatedBy":"alice"`)

	rr = s.do(t, http.MethodGet, "/comments?page=/p1", "", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var pub []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pub))
	require.Len(t, pub, 1)
	require.Equal(t, "John", pub[0]["name"])
	require.Equal(t, "Hello world", pub[0]["message"])
	require.Contains(t, pub[0], "createdAt")
	require.Len(t, pub[0], 3, "публичная проекция без email и служебных полей")
}

func TestRouter_JSONSubmission(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/comments", "application/json",
		`{"name":"Ann","message":"Free offer http://spam.tk","page":"/p2","page_title":"P2"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.admin(t, http.MethodGet, "/admin/comments?status=flagged&page=/p2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[adminList](t, rr)
	require.Equal(t, 1, list.Total)
	require.True(t, list.Comments[0].Flagged)
	require.Equal(t, "pending", list.Comments[0].Status)
	require.Equal(t, "unknown", list.Comments[0].UserAgent)
}

func TestRouter_SubmissionErrors(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded",
		formBody(map[string]string{"name": "x", "message": "   ", "page-url": "/p"}), nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decode[errEnvelope](t, rr)
	require.Equal(t, "invalid_argument", env.Error.Code)
	require.Equal(t, "message is required", env.Error.Message)
	require.NotEmpty(t, env.Error.RequestID)

	rr = s.do(t, http.MethodPost, "/comments", "application/json", `{"message":`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/comments", "application/json", `{"message":"hi","unknown":1}`, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_HoneypotLooksAccepted(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded",
		formBody(map[string]string{"message": "buy", "page-url": "/p", "website": "http://bot"}), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"accepted":true}`, rr.Body.String())

	rr = s.admin(t, http.MethodGet, "/admin/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"total":0,"pending":0,"approved":0,"flagged":0}`, rr.Body.String())
}

func TestRouter_PublicListRequiresPage(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/comments", "", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/admin/stats", "/admin/comments", "/admin/comments/x"} {
		rr := s.do(t, http.MethodGet, target, "", "", nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code, target)

		rr = s.do(t, http.MethodGet, target, "", "", map[string]string{"Authorization": "Bearer wrong"})
		require.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
}

func TestRouter_AdminOperations(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.svc.Ingest(ctx, service.Submission{Name: "Bob", Message: "typo hre", PageID: "/p"})
	require.NoError(t, err)
	id := res.Comment.ID

	rr := s.admin(t, http.MethodGet, "/admin/comments/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.admin(t, http.MethodPatch, "/admin/comments/"+id, `{"message":"typo here"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"message":"typo here"`)

	rr = s.admin(t, http.MethodPatch, "/admin/comments/"+id, `{"status":"archived"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.admin(t, http.MethodPost, "/admin/comments/"+id+"/reject", `{"reason":"off-topic"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"status":"rejected"`)
	require.Contains(t, rr.Body.String(), `"rejectionReason":"off-topic"`)
	require.Contains(t, rr.Body.String(), `"moderatedBy":"moderator"`)

	rr = s.admin(t, http.MethodPost, "/admin/comments/"+id+"/reject", "")
	require.Equal(t, http.StatusOK, rr.Code, "тело reject необязательно")

	rr = s.admin(t, http.MethodPost, "/admin/comments/missing/approve", "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.admin(t, http.MethodDelete, "/admin/comments/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"deleted":true}`, rr.Body.String())

	rr = s.admin(t, http.MethodDelete, "/admin/comments/"+id, "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.admin(t, http.MethodGet, "/admin/comments/"+id, "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.admin(t, http.MethodGet, "/admin/comments?status=archived", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_ModerateEndpoint(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.svc.Ingest(ctx, service.Submission{Message: "hello", PageID: "/p"})
	require.NoError(t, err)
	id := res.Comment.ID

	rr := s.admin(t, http.MethodPost, "/admin/moderate", `{"action":"approve","commentId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"status":"approved"`)

	rr = s.admin(t, http.MethodPost, "/admin/moderate", `{"action":"approve","commentId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, "повторное одобрение идемпотентно")

	rr = s.admin(t, http.MethodPost, "/admin/moderate", `{"action":"archive","commentId":"`+id+`"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.admin(t, http.MethodPost, "/admin/moderate", `{"action":"approve","commentId":"unknown"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.admin(t, http.MethodPost, "/admin/moderate", `{"action":" Delete ","commentId":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, "action не зависит от регистра")
	require.JSONEq(t, `{"deleted":true}`, rr.Body.String())

	rr = s.admin(t, http.MethodPost, "/admin/moderate", `{"action":"delete","commentId":"`+id+`"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_CORSPreflightOnPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodOptions, "/comments", "", "", map[string]string{
		"Origin":                        "https://blog.example",
		"Access-Control-Request-Method": "POST",
	})
	require.Less(t, rr.Code, 300)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimitOnSubmissions(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RatePerMinute = 1
		o.RateBurst = 1
	})

	body := formBody(map[string]string{"message": "hi", "page-url": "/p"})
	hdr := map[string]string{"X-Forwarded-For": "198.51.100.1"}

	rr := s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded", body, hdr)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded", body, hdr)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Подмена X-Forwarded-For не сбрасывает лимит: ключ — адрес соединения.
	rr = s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded", body,
		map[string]string{"X-Forwarded-For": "198.51.100.2"})
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Чтение ленты не ограничивается.
	rr = s.do(t, http.MethodGet, "/comments?page=/p", "", "", hdr)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_RateLimitBehindTrustedProxy(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RatePerMinute = 1
		o.RateBurst = 1
		o.TrustProxy = true
	})

	body := formBody(map[string]string{"message": "hi", "page-url": "/p"})
	post := func(xff string) int {
		return s.do(t, http.MethodPost, "/comments", "application/x-www-form-urlencoded", body,
			map[string]string{"X-Forwarded-For": xff}).Code
	}

	require.Equal(t, http.StatusOK, post("198.51.100.1"))
	require.Equal(t, http.StatusTooManyRequests, post("198.51.100.1"))
	require.Equal(t, http.StatusOK, post("198.51.100.2"))
}

func TestRouter_BasePath(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.BasePath = "/api" })

	rr := s.do(t, http.MethodGet, "/api/comments?page=/p", "", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodGet, "/comments?page=/p", "", "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
