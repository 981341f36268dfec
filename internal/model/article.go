package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Counter fields that only move through IncrementField.
const (
	FieldLikes = "likes"
	FieldViews = "views"
)

// TextIndexFields are the article fields covered by the text index.
var TextIndexFields = []string{"title", "content", "tags"}

// Article is a published piece of writing owned by a writer.
type Article struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	Summary    string    `json:"summary"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	Tags       []string  `json:"tags"`
	ReadTime   int       `json:"readTime"`
	Likes      int64     `json:"likes"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewArticle builds an unsaved article from a draft, owned by authorID.
// The store assigns the id and timestamps on insert.
func NewArticle(authorID string, d ArticleDraft) Article {
	return Article{
		Title:    d.Title,
		Content:  d.Content,
		Summary:  d.Summary,
		AuthorID: authorID,
		Tags:     d.Tags,
		ReadTime: d.ReadTime,
	}
}

// ArticleDraft is the payload accepted when creating an article.
type ArticleDraft struct {
	Title    string   `json:"title" validate:"required,min=5,max=100"`
	Content  string   `json:"content" validate:"required,min=100"`
	Summary  string   `json:"summary" validate:"required,max=200"`
	Tags     []string `json:"tags"`
	ReadTime int      `json:"readTime" validate:"required,min=1"`
}

// Normalize trims the title and tags and drops empty tags.
func (d *ArticleDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Tags = CleanTags(d.Tags)
}

// ArticlePatch is a partial update. Only the fields listed here can be
// changed after creation; nil means "leave as is".
type ArticlePatch struct {
	Title    *string   `json:"title" validate:"omitnil,min=5,max=100"`
	Content  *string   `json:"content" validate:"omitnil,min=100"`
	Summary  *string   `json:"summary" validate:"omitnil,min=1,max=200"`
	Tags     *[]string `json:"tags"`
	ReadTime *int      `json:"readTime" validate:"omitnil,min=1"`
}

// Normalize applies the same trimming rules as ArticleDraft.Normalize to
// the supplied fields.
func (p *ArticlePatch) Normalize() {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if p.Tags != nil {
		tags := CleanTags(*p.Tags)
		p.Tags = &tags
	}
}

// Empty reports whether the patch changes nothing.
func (p ArticlePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Summary == nil && p.Tags == nil && p.ReadTime == nil
}

// TouchesIndex reports whether the patch changes a text-indexed field.
func (p ArticlePatch) TouchesIndex() bool {
	return p.Title != nil || p.Content != nil || p.Tags != nil
}

// Apply copies the supplied fields onto a.
func (p ArticlePatch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.Summary != nil {
		a.Summary = *p.Summary
	}
	if p.Tags != nil {
		a.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.ReadTime != nil {
		a.ReadTime = *p.ReadTime
	}
}

// CleanTags trims every tag and removes empty ones, keeping order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
