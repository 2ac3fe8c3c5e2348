package content

import (
	"context"
	"embed"
	"log/slog"
	"time"

	"horsemarket-web/internal/api"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

//go:embed pages/*.html
var pages embed.FS

var ErrPageNotFound = errors.New("page not found")

type BlogAPI interface {
	BlogPosts(ctx context.Context) ([]api.BlogPost, error)
	BlogPost(ctx context.Context, slug string) (*api.BlogPost, error)
}

type Page struct {
	Slug string `json:"slug"`
	HTML string `json:"html"`
}

type PostSummary struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	PublishedAt time.Time `json:"publishedAt"`
}

type Post struct {
	PostSummary
	HTML string `json:"html"`
}

type Service struct {
	api    BlogAPI
	body   *bluemonday.Policy
	plain  *bluemonday.Policy
	logger *slog.Logger
}

func NewService(client BlogAPI, logger *slog.Logger) *Service {
	return &Service{
		api:    client,
		body:   bluemonday.UGCPolicy(),
		plain:  bluemonday.StrictPolicy(),
		logger: logger,
	}
}

// SanitizeHTML keeps user-generated formatting and strips scripts, handlers and unsafe URLs.
func (s *Service) SanitizeHTML(raw string) string {
	return s.body.Sanitize(raw)
}

// PlainText removes all markup.
func (s *Service) PlainText(raw string) string {
	return s.plain.Sanitize(raw)
}

func (s *Service) Posts(ctx context.Context) ([]PostSummary, error) {
	posts, err := s.api.BlogPosts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list blog posts")
	}

	summaries := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, s.summary(p))
	}
	return summaries, nil
}

func (s *Service) Post(ctx context.Context, slug string) (*Post, error) {
	p, err := s.api.BlogPost(ctx, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "blog post %s", slug)
	}
	return &Post{PostSummary: s.summary(*p), HTML: s.SanitizeHTML(p.Body)}, nil
}

func (s *Service) summary(p api.BlogPost) PostSummary {
	return PostSummary{
		Slug:        p.Slug,
		Title:       s.PlainText(p.Title),
		Excerpt:     s.PlainText(p.Excerpt),
		PublishedAt: p.PublishedAt,
	}
}

// StaticPage returns one of the built-in informational pages.
func (s *Service) StaticPage(slug string) (*Page, error) {
	data, err := pages.ReadFile("pages/" + slug + ".html")
	if err != nil {
		return nil, errors.Wrapf(ErrPageNotFound, "%q", slug)
	}
	return &Page{Slug: slug, HTML: string(data)}, nil
}
