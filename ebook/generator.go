package ebook

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"time"

	"github.com/coreybb/scribe/models"
	epub "github.com/go-shiori/go-epub"
)

const (
	defaultTitle  = "Untitled post"
	defaultAuthor = "Scribe"
	defaultLang   = "en"
)

// PostGenerator renders posts as single-chapter EPUB books.
type PostGenerator struct {
	logger *slog.Logger
}

func NewPostGenerator(logger *slog.Logger) *PostGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostGenerator{logger: logger}
}

// GeneratePost writes post as an EPUB to w and returns the number of bytes written.
// Remote images are left as links; nothing is fetched on the caller's behalf.
func (g *PostGenerator) GeneratePost(ctx context.Context, post *models.Post, w io.Writer) (int64, error) {
	if post == nil {
		return 0, fmt.Errorf("post cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	startTime := time.Now()

	title := post.Title
	if title == "" {
		title = defaultTitle
	}
	author := defaultAuthor
	if post.Author != nil && post.Author.Email != "" {
		author = post.Author.Email
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return 0, fmt.Errorf("failed to create epub: %w", err)
	}
	e.SetAuthor(author)
	e.SetLang(defaultLang)
	e.SetIdentifier("urn:uuid:" + post.ID)
	if post.Excerpt != "" {
		e.SetDescription(post.Excerpt)
	}

	body := fmt.Sprintf("<h1>%s</h1>\n%s", html.EscapeString(title), post.Content)
	if _, err := e.AddSection(body, title, "", ""); err != nil {
		return 0, fmt.Errorf("failed to add section to epub: %w", err)
	}

	n, err := e.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("failed to write epub: %w", err)
	}

	g.logger.Info("generated post epub",
		slog.String("post_id", post.ID),
		slog.Int64("bytes", n),
		slog.Duration("took", time.Since(startTime)),
	)
	return n, nil
}
