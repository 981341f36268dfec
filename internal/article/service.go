// Package article implements the article engine: it checks every request
// against the authorization policy, validates payloads and turns the
// request into a single store operation.
package article

import (
	"context"
	"errors"
	"time"

	"innovate-ink/internal/metrics"
	"innovate-ink/internal/model"
	"innovate-ink/internal/policy"
	"innovate-ink/internal/query"
	"innovate-ink/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultAuthorCacheSize = 1024
	defaultAuthorCacheTTL  = 5 * time.Minute
)

// Page is one page of a listing.
type Page struct {
	Articles    []model.Article `json:"articles"`
	Total       int64           `json:"total"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
}

// Service is stateless apart from the author-name cache and safe for
// concurrent use.
type Service struct {
	store    store.Store
	authors  *authorNames
	validate *fieldValidator
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

// WithAuthorDirectory enables author display names on returned articles.
func WithAuthorDirectory(dir store.AuthorDirectory, cacheSize int, ttl time.Duration) Option {
	return func(s *Service) {
		if cacheSize <= 0 {
			cacheSize = defaultAuthorCacheSize
		}
		if ttl <= 0 {
			ttl = defaultAuthorCacheTTL
		}
		s.authors = newAuthorNames(dir, cacheSize, ttl, s.logger)
	}
}

func NewService(st store.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		validate: newFieldValidator(),
		logger:   logger,
		tracer:   otel.Tracer("innovate-ink/article"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of articles, newest first.
func (s *Service) List(ctx context.Context, p *model.Principal, params query.Params) (page *Page, err error) {
	ctx, span := s.tracer.Start(ctx, "article.List")
	defer func() { s.finish(span, "list", err) }()

	if d := policy.CanPerform(p, policy.ActionList, nil); !d.Allowed {
		return nil, denied(policy.ActionList, d)
	}

	q := query.Build(params)
	span.SetAttributes(
		attribute.String("query.search", q.Filter.Search),
		attribute.String("query.tag", q.Filter.Tag),
		attribute.Int("query.page", q.Page),
		attribute.Int("query.limit", q.Limit),
	)

	var total int64
	var articles []model.Article
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountMatching(gctx, q.Filter)
		total = n
		return err
	})
	g.Go(func() error {
		found, err := s.store.FindMany(gctx, q.Filter, q.Sort, q.Skip, q.Limit)
		articles = found
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storageFailure("list articles", err)
	}

	refs := make([]*model.Article, len(articles))
	for i := range articles {
		refs[i] = &articles[i]
	}
	s.authors.fill(ctx, refs...)

	return &Page{
		Articles:    articles,
		Total:       total,
		CurrentPage: q.Page,
		TotalPages:  q.TotalPages(total),
	}, nil
}

// View is a read with a side effect: it returns the article and counts
// the read by atomically adding one to its views. Every call counts, there
// is no per-viewer deduplication. The returned article carries the
// incremented view count.
func (s *Service) View(ctx context.Context, p *model.Principal, id uuid.UUID) (a *model.Article, err error) {
	ctx, span := s.tracer.Start(ctx, "article.View", trace.WithAttributes(attribute.String("article.id", id.String())))
	defer func() { s.finish(span, "view", err) }()

	if d := policy.CanPerform(p, policy.ActionRead, nil); !d.Allowed {
		return nil, denied(policy.ActionRead, d)
	}

	a, err = s.store.FindOne(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound()
	}
	if err != nil {
		return nil, s.storageFailure("find article", err)
	}

	if d := policy.CanPerform(p, policy.ActionIncrementView, a); !d.Allowed {
		return nil, denied(policy.ActionIncrementView, d)
	}
	views, err := s.store.IncrementField(ctx, id, model.FieldViews, 1)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound()
	}
	if err != nil {
		return nil, s.storageFailure("count view", err)
	}
	metrics.RecordIncrement(model.FieldViews)
	a.Views = views

	s.authors.fill(ctx, a)
	return a, nil
}

// Create stores a new article owned by p. The author is always p, never
// anything supplied in the payload.
func (s *Service) Create(ctx context.Context, p *model.Principal, draft model.ArticleDraft) (a *model.Article, err error) {
	ctx, span := s.tracer.Start(ctx, "article.Create")
	defer func() { s.finish(span, "create", err) }()

	if d := policy.CanPerform(p, policy.ActionCreate, nil); !d.Allowed {
		return nil, denied(policy.ActionCreate, d)
	}

	draft.Normalize()
	if err := s.validate.check(draft); err != nil {
		return nil, err
	}

	article := model.NewArticle(p.ID, draft)
	a, err = s.store.Insert(ctx, &article)
	if err != nil {
		return nil, s.storageFailure("insert article", err)
	}

	s.logger.Info("Article created", zap.String("article_id", a.ID.String()), zap.String("author_id", a.AuthorID))
	s.authors.fill(ctx, a)
	return a, nil
}

// Update applies the fields present in patch to an article p owns.
func (s *Service) Update(ctx context.Context, p *model.Principal, id uuid.UUID, patch model.ArticlePatch) (a *model.Article, err error) {
	ctx, span := s.tracer.Start(ctx, "article.Update", trace.WithAttributes(attribute.String("article.id", id.String())))
	defer func() { s.finish(span, "update", err) }()

	current, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanPerform(p, policy.ActionUpdate, current); !d.Allowed {
		return nil, denied(policy.ActionUpdate, d)
	}

	patch.Normalize()
	if err := s.validate.check(patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		s.authors.fill(ctx, current)
		return current, nil
	}

	// the ownership condition is re-checked atomically by the store
	a, err = s.store.UpdateFields(ctx, store.Conditions{ID: id, AuthorID: p.ID}, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundOrForbidden(policy.ActionUpdate)
	}
	if err != nil {
		return nil, s.storageFailure("update article", err)
	}

	s.authors.fill(ctx, a)
	return a, nil
}

// Delete permanently removes an article p owns and returns it as it was.
func (s *Service) Delete(ctx context.Context, p *model.Principal, id uuid.UUID) (a *model.Article, err error) {
	ctx, span := s.tracer.Start(ctx, "article.Delete", trace.WithAttributes(attribute.String("article.id", id.String())))
	defer func() { s.finish(span, "delete", err) }()

	current, err := s.snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := policy.CanPerform(p, policy.ActionDelete, current); !d.Allowed {
		return nil, denied(policy.ActionDelete, d)
	}

	a, err = s.store.FindOneAndDelete(ctx, store.Conditions{ID: id, AuthorID: p.ID})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundOrForbidden(policy.ActionDelete)
	}
	if err != nil {
		return nil, s.storageFailure("delete article", err)
	}

	s.logger.Info("Article deleted", zap.String("article_id", id.String()), zap.String("author_id", p.ID))
	return a, nil
}

// Like adds one like and returns the new total.
func (s *Service) Like(ctx context.Context, p *model.Principal, id uuid.UUID) (likes int64, err error) {
	ctx, span := s.tracer.Start(ctx, "article.Like", trace.WithAttributes(attribute.String("article.id", id.String())))
	defer func() { s.finish(span, "like", err) }()

	if d := policy.CanPerform(p, policy.ActionIncrementLike, nil); !d.Allowed {
		return 0, denied(policy.ActionIncrementLike, d)
	}

	likes, err = s.store.IncrementField(ctx, id, model.FieldLikes, 1)
	if errors.Is(err, store.ErrNotFound) {
		return 0, notFound()
	}
	if err != nil {
		return 0, s.storageFailure("count like", err)
	}
	metrics.RecordIncrement(model.FieldLikes)
	return likes, nil
}

// snapshot loads the article an owner-scoped action targets. A missing
// article is a nil snapshot, not an error: the policy decides what the
// caller learns about it.
func (s *Service) snapshot(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	a, err := s.store.FindOne(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageFailure("find article", err)
	}
	return a, nil
}

func (s *Service) storageFailure(op string, err error) *Error {
	s.logger.Error("Storage failure", zap.String("op", op), zap.Error(err))
	return storageFailure(op, err)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	metrics.RecordOperation(op, outcome)
	span.End()
}
