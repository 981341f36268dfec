package server

import (
	"errors"
	"net/http"

	"innovate-ink/internal/article"
	"innovate-ink/internal/model"

	"github.com/go-chi/render"
)

// CreateArticleRequest is the body of POST /api/articles. Only the draft
// fields are decoded; an authorId or counters in the body are dropped.
type CreateArticleRequest struct {
	model.ArticleDraft
}

func (c *CreateArticleRequest) Bind(r *http.Request) error {
	return nil
}

// UpdateArticleRequest is the body of PUT /api/articles/{id}. Absent or
// null fields are left unchanged.
type UpdateArticleRequest struct {
	model.ArticlePatch
}

func (u *UpdateArticleRequest) Bind(r *http.Request) error {
	return nil
}

// ArticlePayload is a bare article.
type ArticlePayload struct {
	*model.Article
}

func (a *ArticlePayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ArticleResponse wraps one article, optionally with a message.
type ArticleResponse struct {
	Message string         `json:"message,omitempty"`
	Article *model.Article `json:"article"`
}

func (a *ArticleResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// PageResponse is the list payload.
type PageResponse struct {
	*article.Page
}

func (p *PageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if p.Articles == nil {
		p.Articles = []model.Article{}
	}
	return nil
}

type LikeResponse struct {
	Message string `json:"message"`
	Likes   int64  `json:"likes"`
}

func (l *LikeResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type MessageResponse struct {
	Message string            `json:"message"`
	Extra   map[string]string `json:"endpoints,omitempty"`
}

func (m *MessageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	Message string            `json:"message"`
	Kind    string            `json:"error,omitempty"`
	Field   string            `json:"field,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		Message:        "Invalid request body",
		Kind:           string(article.KindValidation),
	}
}

var (
	ErrRouteNotFound   = &ErrResponse{HTTPStatusCode: http.StatusNotFound, Message: "Route not found"}
	ErrTooManyRequests = &ErrResponse{HTTPStatusCode: http.StatusTooManyRequests, Message: "Too many requests, slow down"}
	ErrUnavailable     = &ErrResponse{HTTPStatusCode: http.StatusServiceUnavailable, Message: "Storage unavailable"}
)

// ErrService maps a service error to its HTTP status. Storage causes are
// replaced by failMessage.
func ErrService(err error, failMessage string) render.Renderer {
	var e *article.Error
	if !errors.As(err, &e) {
		e = &article.Error{Kind: article.KindStorage}
	}

	resp := &ErrResponse{Err: err, Message: e.Message, Kind: string(e.Kind)}
	switch e.Kind {
	case article.KindValidation:
		resp.HTTPStatusCode = http.StatusBadRequest
		resp.Field = e.Field
		resp.Fields = e.Fields
	case article.KindUnauthenticated:
		resp.HTTPStatusCode = http.StatusUnauthorized
	case article.KindForbidden:
		resp.HTTPStatusCode = http.StatusForbidden
	case article.KindNotFound:
		resp.HTTPStatusCode = http.StatusNotFound
		resp.Message = "Article not found"
	case article.KindNotFoundOrForbidden:
		resp.HTTPStatusCode = http.StatusNotFound
		resp.Message = capitalize(e.Message)
	default:
		resp.HTTPStatusCode = http.StatusInternalServerError
		resp.Message = failMessage
	}
	return resp
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
