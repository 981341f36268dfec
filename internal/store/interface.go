package store

import (
	"context"
	"errors"

	"innovate-ink/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("article not found")
	ErrUnknownCounter  = errors.New("unknown counter field")
	ErrUnsupportedSort = errors.New("unsupported sort field")
)

// Filter selects articles. Zero value matches everything.
type Filter struct {
	// Search is matched against the text index (title, content, tags).
	Search string
	// Tag must be one of the article's tags, compared exactly.
	Tag string
}

// Empty reports whether f has no predicates.
func (f Filter) Empty() bool {
	return f.Search == "" && f.Tag == ""
}

const SortCreatedAt = "createdAt"

type Sort struct {
	Field      string
	Descending bool
}

// Conditions scope a mutation to one article. AuthorID, when set, must
// match the stored author or the article is treated as missing.
type Conditions struct {
	ID       uuid.UUID
	AuthorID string
}

// Store is the persistence contract the article engine consumes.
type Store interface {
	FindMany(ctx context.Context, f Filter, s Sort, skip, limit int) ([]model.Article, error)
	CountMatching(ctx context.Context, f Filter) (int64, error)
	FindOne(ctx context.Context, id uuid.UUID) (*model.Article, error)
	FindOneAndDelete(ctx context.Context, c Conditions) (*model.Article, error)
	Insert(ctx context.Context, article *model.Article) (*model.Article, error)
	UpdateFields(ctx context.Context, c Conditions, patch model.ArticlePatch) (*model.Article, error)
	IncrementField(ctx context.Context, id uuid.UUID, field string, delta int64) (int64, error)
}

// AuthorDirectory maps author ids to display names.
type AuthorDirectory interface {
	SetAuthorName(ctx context.Context, id, name string) error
	AuthorNames(ctx context.Context, ids []string) (map[string]string, error)
}
