// Package server binds the article service to HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"innovate-ink/internal/article"
	"innovate-ink/internal/model"
	"innovate-ink/internal/query"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Articles is the part of article.Service the handlers call.
type Articles interface {
	List(ctx context.Context, p *model.Principal, params query.Params) (*article.Page, error)
	View(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Article, error)
	Create(ctx context.Context, p *model.Principal, draft model.ArticleDraft) (*model.Article, error)
	Update(ctx context.Context, p *model.Principal, id uuid.UUID, patch model.ArticlePatch) (*model.Article, error)
	Delete(ctx context.Context, p *model.Principal, id uuid.UUID) (*model.Article, error)
	Like(ctx context.Context, p *model.Principal, id uuid.UUID) (int64, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	LikeRate  rate.Limit
	LikeBurst int
}

type Server struct {
	articles Articles
	health   Pinger
	logger   *zap.Logger
	router   *mux.Router
	handler  http.Handler
	likes    *RateLimiter
	server   *http.Server
}

func NewServer(articles Articles, health Pinger, logger *zap.Logger, opts Options) *Server {
	if opts.LikeRate <= 0 {
		opts.LikeRate = 5
	}
	if opts.LikeBurst < 1 {
		opts.LikeBurst = 10
	}

	s := &Server{
		articles: articles,
		health:   health,
		logger:   logger,
		router:   mux.NewRouter(),
		likes:    NewRateLimiter(opts.LikeRate, opts.LikeBurst),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleNotFound)
	s.router.Use(s.instrument, withPrincipal)

	s.router.HandleFunc("/", s.handleWelcome).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/articles").Subrouter()
	api.HandleFunc("", s.handleList).Methods("GET")
	api.Handle("", requireCaller(http.HandlerFunc(s.handleCreate))).Methods("POST")
	api.HandleFunc("/{id}", s.handleGet).Methods("GET")
	api.Handle("/{id}", requireCaller(http.HandlerFunc(s.handleUpdate))).Methods("PUT")
	api.Handle("/{id}", requireCaller(http.HandlerFunc(s.handleDelete))).Methods("DELETE")
	api.Handle("/{id}/like", s.likes.Middleware(http.HandlerFunc(s.handleLike))).Methods("POST")

	s.handler = middleware.Recoverer(
		middleware.RequestID(
			middleware.RealIP(
				s.logRequests(s.router),
			),
		),
	)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
