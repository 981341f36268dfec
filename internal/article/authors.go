package article

import (
	"context"
	"time"

	"innovate-ink/internal/model"
	"innovate-ink/internal/store"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// authorNames resolves author ids to display names through a small
// expiring cache in front of the directory.
type authorNames struct {
	dir    store.AuthorDirectory
	cache  *expirable.LRU[string, string]
	logger *zap.Logger
}

func newAuthorNames(dir store.AuthorDirectory, size int, ttl time.Duration, logger *zap.Logger) *authorNames {
	return &authorNames{
		dir:    dir,
		cache:  expirable.NewLRU[string, string](size, nil, ttl),
		logger: logger,
	}
}

// fill sets AuthorName on each article. A directory failure leaves names
// empty and is only logged.
func (n *authorNames) fill(ctx context.Context, articles ...*model.Article) {
	if n == nil || len(articles) == 0 {
		return
	}

	var missing []string
	wanted := make(map[string]struct{})
	for _, a := range articles {
		if _, ok := n.cache.Get(a.AuthorID); ok {
			continue
		}
		if _, ok := wanted[a.AuthorID]; !ok {
			wanted[a.AuthorID] = struct{}{}
			missing = append(missing, a.AuthorID)
		}
	}

	if len(missing) > 0 {
		names, err := n.dir.AuthorNames(ctx, missing)
		if err != nil {
			n.logger.Warn("Failed to resolve author names", zap.Strings("author_ids", missing), zap.Error(err))
		}
		for id, name := range names {
			n.cache.Add(id, name)
		}
	}

	for _, a := range articles {
		if name, ok := n.cache.Get(a.AuthorID); ok {
			a.AuthorName = name
		}
	}
}
