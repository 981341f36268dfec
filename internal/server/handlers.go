package server

import (
	"net/http"

	"innovate-ink/internal/query"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, &MessageResponse{
		Message: "Welcome to InnovateInk API",
		Extra:   map[string]string{"articles": "/api/articles"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		render.Render(w, r, ErrUnavailable)
		return
	}
	render.Render(w, r, &MessageResponse{Message: "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, ErrRouteNotFound)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	page, err := s.articles.List(r.Context(), PrincipalFrom(r.Context()), query.Params{
		Search: v.Get("search"),
		Tag:    v.Get("tag"),
		Page:   v.Get("page"),
		Limit:  v.Get("limit"),
	})
	if err != nil {
		render.Render(w, r, ErrService(err, "Error fetching articles"))
		return
	}
	render.Render(w, r, &PageResponse{Page: page})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := articleID(r)
	a, err := s.articles.View(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		render.Render(w, r, ErrService(err, "Error fetching article"))
		return
	}
	render.Render(w, r, &ArticlePayload{Article: a})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	data := &CreateArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	a, err := s.articles.Create(r.Context(), PrincipalFrom(r.Context()), data.ArticleDraft)
	if err != nil {
		render.Render(w, r, ErrService(err, "Error creating article"))
		return
	}

	render.Status(r, http.StatusCreated)
	render.Render(w, r, &ArticleResponse{Message: "Article created successfully", Article: a})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := articleID(r)

	data := &UpdateArticleRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	a, err := s.articles.Update(r.Context(), PrincipalFrom(r.Context()), id, data.ArticlePatch)
	if err != nil {
		render.Render(w, r, ErrService(err, "Error updating article"))
		return
	}
	render.Render(w, r, &ArticleResponse{Message: "Article updated successfully", Article: a})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := articleID(r)
	if _, err := s.articles.Delete(r.Context(), PrincipalFrom(r.Context()), id); err != nil {
		render.Render(w, r, ErrService(err, "Error deleting article"))
		return
	}
	render.Render(w, r, &MessageResponse{Message: "Article deleted successfully"})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id := articleID(r)
	likes, err := s.articles.Like(r.Context(), PrincipalFrom(r.Context()), id)
	if err != nil {
		render.Render(w, r, ErrService(err, "Error liking article"))
		return
	}
	render.Render(w, r, &LikeResponse{Message: "Article liked successfully", Likes: likes})
}

// articleID parses the {id} path variable. An id that is not a UUID cannot
// name an article and becomes uuid.Nil, which the store never assigns, so
// the service answers exactly as for a missing article.
func articleID(r *http.Request) uuid.UUID {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil
	}
	return id
}
