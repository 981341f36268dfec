package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"innovate-ink/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyRecent  = "articles:recent"
	keySeq     = "articles:seq"
	keyAuthors = "authors"

	maxTxAttempts = 3
)

func articleKey(id uuid.UUID) string { return fmt.Sprintf("article:%s", id) }
func termsKey(id uuid.UUID) string   { return fmt.Sprintf("article:%s:terms", id) }
func tagKey(tag string) string       { return "tag:" + tag }
func termKey(token string) string    { return "term:" + token }

// countersKey holds likes and views apart from the article hash, so counter
// traffic never invalidates a WATCH on the article.
func countersKey(id uuid.UUID) string { return fmt.Sprintf("article:%s:counters", id) }

func contentKey(id uuid.UUID, rev int64) []byte {
	return []byte(fmt.Sprintf("content:%s:%d", id, rev))
}

// incrementScript bumps a counter in KEYS[2] only while the article hash
// KEYS[1] exists, so a like racing a delete cannot resurrect a record.
var incrementScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
return redis.call("HINCRBY", KEYS[2], ARGV[1], ARGV[2])
`)

// HybridStore combines Redis (metadata, indexes, counters) and Badger
// (article content).
type HybridStore struct {
	rdb *redis.Client
	db  *badger.DB
}

// NewHybridStore initializes databases.
// Pass badgerPath="" to run in "Redis-Only" mode (for CLI tools).
func NewHybridStore(redisAddr string, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var db *badger.DB
	var err error

	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil // Silence default logger
		db, err = badger.Open(opts)
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to open badger: %w", err)
		}
	}

	return &HybridStore{rdb: rdb, db: db}, nil
}

// NewHybridStoreWith wraps already opened clients. db may be nil.
func NewHybridStoreWith(rdb *redis.Client, db *badger.DB) *HybridStore {
	return &HybridStore{rdb: rdb, db: db}
}

// Close cleans up connections
func (s *HybridStore) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *HybridStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// CollectGarbage runs one Badger value-log GC pass and reports whether a
// file was rewritten. Nothing to rewrite is not an error.
func (s *HybridStore) CollectGarbage(discardRatio float64) (bool, error) {
	if s.db == nil {
		return false, nil
	}
	err := s.db.RunValueLogGC(discardRatio)
	if errors.Is(err, badger.ErrNoRewrite) {
		return false, nil
	}
	return err == nil, err
}

// Insert assigns id, timestamps and zeroed counters, then saves content to
// Badger and metadata plus indexes to Redis in one transaction.
func (s *HybridStore) Insert(ctx context.Context, article *model.Article) (*model.Article, error) {
	a := *article
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Likes, a.Views = 0, 0
	a.Tags = append([]string{}, article.Tags...)

	seq, err := s.rdb.Incr(ctx, keySeq).Result()
	if err != nil {
		return nil, err
	}

	var rev int64
	if a.Content != "" {
		rev = seq
		if err := s.putContent(a.ID, rev, a.Content); err != nil {
			return nil, err
		}
	}

	fields, err := encodeArticle(&a, rev)
	if err != nil {
		return nil, err
	}
	tokens := indexTokens(a.Title, a.Content, a.Tags)

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, articleKey(a.ID), fields)
		pipe.HSet(ctx, countersKey(a.ID), model.FieldLikes, 0, model.FieldViews, 0)
		pipe.ZAdd(ctx, keyRecent, redis.Z{Score: float64(seq), Member: a.ID.String()})
		addIndexes(ctx, pipe, a.ID, a.Tags, tokens)
		return nil
	})
	if err != nil {
		if rev > 0 {
			_ = s.dropContent(a.ID, rev)
		}
		return nil, err
	}

	return &a, nil
}

// FindOne combines data: Metadata from Redis + Content from Badger
func (s *HybridStore) FindOne(ctx context.Context, id uuid.UUID) (*model.Article, error) {
	articles, err := s.loadArticles(ctx, []string{id.String()})
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, ErrNotFound
	}
	return &articles[0], nil
}

// FindMany returns one window of the matching articles in creation order.
// Creation order is insertion order: the sorted set is scored by a
// monotonically increasing sequence.
func (s *HybridStore) FindMany(ctx context.Context, f Filter, srt Sort, skip, limit int) ([]model.Article, error) {
	if srt.Field != "" && srt.Field != SortCreatedAt {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSort, srt.Field)
	}
	if limit <= 0 || skip < 0 {
		return []model.Article{}, nil
	}

	var ids []string
	var err error
	if f.Empty() {
		start, stop := int64(skip), int64(skip+limit-1)
		if srt.Descending {
			ids, err = s.rdb.ZRevRange(ctx, keyRecent, start, stop).Result()
		} else {
			ids, err = s.rdb.ZRange(ctx, keyRecent, start, stop).Result()
		}
		if err != nil {
			return nil, err
		}
	} else {
		matched, err := s.matchingIDs(ctx, f)
		if err != nil {
			return nil, err
		}
		ordered, err := s.orderByInsertion(ctx, matched, srt.Descending)
		if err != nil {
			return nil, err
		}
		ids = window(ordered, skip, limit)
	}

	return s.loadArticles(ctx, ids)
}

// CountMatching counts the articles selected by f.
func (s *HybridStore) CountMatching(ctx context.Context, f Filter) (int64, error) {
	if f.Empty() {
		return s.rdb.ZCard(ctx, keyRecent).Result()
	}
	ids, err := s.matchingIDs(ctx, f)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// IncrementField atomically adds delta to a counter and returns the new value.
func (s *HybridStore) IncrementField(ctx context.Context, id uuid.UUID, field string, delta int64) (int64, error) {
	if field != model.FieldLikes && field != model.FieldViews {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCounter, field)
	}
	keys := []string{articleKey(id), countersKey(id)}
	n, err := incrementScript.Run(ctx, s.rdb, keys, field, delta).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	return n, err
}

// FindOneAndDelete removes the article matching c and returns it as it
// was. The ownership check and the removal happen in one transaction.
func (s *HybridStore) FindOneAndDelete(ctx context.Context, c Conditions) (*model.Article, error) {
	key := articleKey(c.ID)
	var deleted *model.Article
	var rev int64

	err := s.watch(ctx, func(tx *redis.Tx) error {
		a, r, err := loadOwned(ctx, tx, c)
		if err != nil {
			return err
		}
		tokens, err := tx.SMembers(ctx, termsKey(c.ID)).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key, countersKey(c.ID))
			pipe.ZRem(ctx, keyRecent, c.ID.String())
			removeIndexes(ctx, pipe, c.ID, a.Tags, tokens)
			return nil
		})
		if err == nil {
			deleted, rev = a, r
		}
		return err
	}, key)
	if err != nil {
		return nil, err
	}

	if rev > 0 {
		if err := s.loadContent([]*model.Article{deleted}, []int64{rev}); err == nil {
			// unreachable once the Redis record is gone, so a failed drop only leaks space
			_ = s.dropContent(c.ID, rev)
		}
	}
	return deleted, nil
}

// UpdateFields applies patch to the article matching c. New content is
// written under a fresh revision before the Redis transaction switches to
// it, so readers never see half an update.
func (s *HybridStore) UpdateFields(ctx context.Context, c Conditions, patch model.ArticlePatch) (*model.Article, error) {
	key := articleKey(c.ID)
	var updated *model.Article
	var staleRev int64

	err := s.watch(ctx, func(tx *redis.Tx) error {
		a, rev, err := loadOwned(ctx, tx, c)
		if err != nil {
			return err
		}
		if err := s.loadContent([]*model.Article{a}, []int64{rev}); err != nil {
			return err
		}
		oldTags := a.Tags
		oldTokens, err := tx.SMembers(ctx, termsKey(c.ID)).Result()
		if err != nil {
			return err
		}

		patch.Apply(a)
		a.UpdatedAt = time.Now().UTC()

		// revisions are unique across concurrent updates
		newRev := rev
		if patch.Content != nil {
			if newRev, err = s.rdb.Incr(ctx, keySeq).Result(); err != nil {
				return err
			}
			if err := s.putContent(c.ID, newRev, a.Content); err != nil {
				return err
			}
		}

		fields, err := encodeArticle(a, newRev)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			if patch.TouchesIndex() {
				removeIndexes(ctx, pipe, c.ID, oldTags, oldTokens)
				addIndexes(ctx, pipe, c.ID, a.Tags, indexTokens(a.Title, a.Content, a.Tags))
			}
			return nil
		})
		if err != nil {
			if newRev != rev {
				_ = s.dropContent(c.ID, newRev)
			}
			return err
		}

		updated = a
		if newRev != rev {
			staleRev = rev
		}
		return nil
	}, key)
	if err != nil {
		return nil, err
	}

	if staleRev > 0 {
		_ = s.dropContent(c.ID, staleRev)
	}
	return updated, nil
}

// SetAuthorName records the display name for an author id.
func (s *HybridStore) SetAuthorName(ctx context.Context, id, name string) error {
	return s.rdb.HSet(ctx, keyAuthors, id, name).Err()
}

// AuthorNames looks up display names; unknown ids are absent from the result.
func (s *HybridStore) AuthorNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	vals, err := s.rdb.HMGet(ctx, keyAuthors, ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if name, ok := v.(string); ok {
			names[ids[i]] = name
		}
	}
	return names, nil
}

// watch runs fn under WATCH on keys, retrying when another client touched
// them before EXEC.
func (s *HybridStore) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxAttempts; i++ {
		err = s.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// loadOwned reads the article under tx. Only the article hash is watched;
// counters are read as they stand.
func loadOwned(ctx context.Context, tx *redis.Tx, c Conditions) (*model.Article, int64, error) {
	h, err := tx.HGetAll(ctx, articleKey(c.ID)).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(h) == 0 {
		return nil, 0, ErrNotFound
	}
	counters, err := tx.HGetAll(ctx, countersKey(c.ID)).Result()
	if err != nil {
		return nil, 0, err
	}
	a, rev, err := decodeArticle(c.ID, h, counters)
	if err != nil {
		return nil, 0, err
	}
	if c.AuthorID != "" && a.AuthorID != c.AuthorID {
		return nil, 0, ErrNotFound
	}
	return a, rev, nil
}

// matchingIDs resolves a non-empty filter to the set of matching ids.
// Search tokens are OR-ed, the tag predicate is AND-ed on top.
func (s *HybridStore) matchingIDs(ctx context.Context, f Filter) ([]string, error) {
	var matched map[string]struct{}

	if f.Search != "" {
		tokens := Tokenize(f.Search)
		if len(tokens) == 0 {
			return nil, nil
		}
		keys := make([]string, len(tokens))
		for i, t := range tokens {
			keys[i] = termKey(t)
		}
		members, err := s.rdb.SUnion(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		matched = toSet(members)
	}

	if f.Tag != "" {
		members, err := s.rdb.SMembers(ctx, tagKey(f.Tag)).Result()
		if err != nil {
			return nil, err
		}
		if matched == nil {
			matched = toSet(members)
		} else {
			tagged := toSet(members)
			for id := range matched {
				if _, ok := tagged[id]; !ok {
					delete(matched, id)
				}
			}
		}
	}

	ids := make([]string, 0, len(matched))
	for id := range matched {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *HybridStore) orderByInsertion(ctx context.Context, ids []string, desc bool) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.FloatCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.ZScore(ctx, keyRecent, id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	type scored struct {
		id    string
		score float64
	}
	list := make([]scored, 0, len(ids))
	for i, cmd := range cmds {
		score, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		list = append(list, scored{id: ids[i], score: score})
	}
	sort.Slice(list, func(i, j int) bool {
		if desc {
			return list[i].score > list[j].score
		}
		return list[i].score < list[j].score
	})

	ordered := make([]string, len(list))
	for i, sc := range list {
		ordered[i] = sc.id
	}
	return ordered, nil
}

func (s *HybridStore) loadArticles(ctx context.Context, ids []string) ([]model.Article, error) {
	articles := []model.Article{}
	if len(ids) == 0 {
		return articles, nil
	}

	parsed := make([]uuid.UUID, len(ids))
	for i, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, err
		}
		parsed[i] = id
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(parsed))
	counterCmds := make([]*redis.MapStringStringCmd, len(parsed))
	for i, id := range parsed {
		cmds[i] = pipe.HGetAll(ctx, articleKey(id))
		counterCmds[i] = pipe.HGetAll(ctx, countersKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	loaded := make([]*model.Article, 0, len(ids))
	revs := make([]int64, 0, len(ids))
	for i, cmd := range cmds {
		h := cmd.Val()
		if len(h) == 0 {
			// deleted between the index read and this fetch
			continue
		}
		a, rev, err := decodeArticle(parsed[i], h, counterCmds[i].Val())
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, a)
		revs = append(revs, rev)
	}
	if err := s.loadContent(loaded, revs); err != nil {
		return nil, err
	}

	for _, a := range loaded {
		articles = append(articles, *a)
	}
	return articles, nil
}

// loadContent fills Content from Badger. In Redis-only mode content stays empty.
func (s *HybridStore) loadContent(articles []*model.Article, revs []int64) error {
	if s.db == nil {
		return nil
	}
	return s.db.View(func(txn *badger.Txn) error {
		for i, a := range articles {
			if revs[i] == 0 {
				continue
			}
			item, err := txn.Get(contentKey(a.ID, revs[i]))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				a.Content = string(val)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *HybridStore) putContent(id uuid.UUID, rev int64, content string) error {
	if s.db == nil {
		return fmt.Errorf("cannot save content: badgerdb is not initialized")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(contentKey(id, rev), []byte(content))
	})
}

func (s *HybridStore) dropContent(id uuid.UUID, rev int64) error {
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(contentKey(id, rev))
	})
}

func addIndexes(ctx context.Context, pipe redis.Pipeliner, id uuid.UUID, tags, tokens []string) {
	member := id.String()
	for _, t := range tags {
		pipe.SAdd(ctx, tagKey(t), member)
	}
	for _, t := range tokens {
		pipe.SAdd(ctx, termKey(t), member)
	}
	if len(tokens) > 0 {
		pipe.SAdd(ctx, termsKey(id), toArgs(tokens)...)
	}
}

func removeIndexes(ctx context.Context, pipe redis.Pipeliner, id uuid.UUID, tags, tokens []string) {
	member := id.String()
	for _, t := range tags {
		pipe.SRem(ctx, tagKey(t), member)
	}
	for _, t := range tokens {
		pipe.SRem(ctx, termKey(t), member)
	}
	pipe.Del(ctx, termsKey(id))
}

func encodeArticle(a *model.Article, rev int64) (map[string]interface{}, error) {
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"title":      a.Title,
		"summary":    a.Summary,
		"authorId":   a.AuthorID,
		"tags":       string(tags),
		"readTime":   a.ReadTime,
		"createdAt":  a.CreatedAt.Format(time.RFC3339Nano),
		"updatedAt":  a.UpdatedAt.Format(time.RFC3339Nano),
		"contentRev": rev,
	}, nil
}

// decodeArticle builds an article from its hash h and its counters hash.
func decodeArticle(id uuid.UUID, h, counters map[string]string) (*model.Article, int64, error) {
	a := &model.Article{
		ID:       id,
		Title:    h["title"],
		Summary:  h["summary"],
		AuthorID: h["authorId"],
	}

	if raw := h["tags"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.Tags); err != nil {
			return nil, 0, fmt.Errorf("decode tags of %s: %w", id, err)
		}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}

	var err error
	if a.ReadTime, err = strconv.Atoi(h["readTime"]); err != nil {
		return nil, 0, fmt.Errorf("decode readTime of %s: %w", id, err)
	}
	if a.Likes, err = parseCounter(counters[model.FieldLikes]); err != nil {
		return nil, 0, fmt.Errorf("decode likes of %s: %w", id, err)
	}
	if a.Views, err = parseCounter(counters[model.FieldViews]); err != nil {
		return nil, 0, fmt.Errorf("decode views of %s: %w", id, err)
	}
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, h["createdAt"]); err != nil {
		return nil, 0, fmt.Errorf("decode createdAt of %s: %w", id, err)
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, h["updatedAt"]); err != nil {
		return nil, 0, fmt.Errorf("decode updatedAt of %s: %w", id, err)
	}

	rev, err := parseCounter(h["contentRev"])
	if err != nil {
		return nil, 0, fmt.Errorf("decode contentRev of %s: %w", id, err)
	}
	return a, rev, nil
}

func parseCounter(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func window(ids []string, skip, limit int) []string {
	if skip >= len(ids) {
		return nil
	}
	end := skip + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[skip:end]
}

func toSet(members []string) map[string]struct{} {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set
}

func toArgs(ss []string) []interface{} {
	args := make([]interface{}, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
