package routehandlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coreybb/scribe/auth"
	"github.com/coreybb/scribe/content"
	"github.com/coreybb/scribe/models"
	"github.com/coreybb/scribe/webutil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PostStore is the persistence the post handlers need.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPosts(ctx context.Context) ([]models.Post, error)
	GetPostByID(ctx context.Context, postID string) (*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, postID string) error
}

// PostExporter renders a post as a downloadable document.
type PostExporter interface {
	GeneratePost(ctx context.Context, post *models.Post, w io.Writer) (int64, error)
}

// PostHandler holds dependencies for post route handlers.
type PostHandler struct {
	Repo      PostStore
	Processor *content.Processor
	Exporter  PostExporter
}

func NewPostHandler(repo PostStore, processor *content.Processor, exporter PostExporter) *PostHandler {
	return &PostHandler{Repo: repo, Processor: processor, Exporter: exporter}
}

type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// decodePostRequest reads {title, content} and returns the sanitized form.
// Missing fields and too-short bodies are rejected before anything touches the store.
func (h *PostHandler) decodePostRequest(r *http.Request) (*content.Processed, error) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, webutil.ErrBadRequest("Title and content are required")
	}

	processed, err := h.Processor.Process(req.Title, req.Content)
	if err != nil {
		return nil, webutil.ErrBadRequestWrap("Content is empty after removing unsafe markup", err)
	}
	if processed.Title == "" {
		return nil, webutil.ErrBadRequest("Title and content are required")
	}
	if content.Length(processed.Text) < models.MinPostContentLength {
		return nil, webutil.ErrBadRequest(fmt.Sprintf("Content must be at least %d characters", models.MinPostContentLength))
	}
	return processed, nil
}

func postIDParam(r *http.Request) (string, error) {
	postID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(postID); err != nil {
		return "", webutil.ErrBadRequest("Invalid post ID")
	}
	return postID, nil
}

func (h *PostHandler) loadPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := h.Repo.GetPostByID(ctx, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, webutil.ErrNotFound("Post not found")
		}
		return nil, webutil.ErrInternalServerWrap("Error fetching post", err)
	}
	return post, nil
}

func requireIdentity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, webutil.ErrUnauthorized("Access denied. No token provided.")
	}
	return id, nil
}

// loadOwnedPost loads the post named in the URL and checks it belongs to the caller.
func (h *PostHandler) loadOwnedPost(r *http.Request, forbiddenMsg string) (*models.Post, auth.Identity, error) {
	id, err := requireIdentity(r)
	if err != nil {
		return nil, id, err
	}
	postID, err := postIDParam(r)
	if err != nil {
		return nil, id, err
	}
	post, err := h.loadPost(r.Context(), postID)
	if err != nil {
		return nil, id, err
	}
	if !post.OwnedBy(id.UserID) {
		return nil, id, webutil.ErrForbidden(forbiddenMsg)
	}
	return post, id, nil
}

func (h *PostHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) error {
	id, err := requireIdentity(r)
	if err != nil {
		return err
	}
	processed, err := h.decodePostRequest(r)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	post := models.Post{
		ID:        uuid.NewString(),
		Title:     processed.Title,
		Content:   processed.HTML,
		Excerpt:   processed.Excerpt,
		OwnerID:   id.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Repo.CreatePost(r.Context(), &post); err != nil {
		return webutil.ErrInternalServerWrap("Server error while creating post", err)
	}

	slog.Info("Post created", "post_id", post.ID, "owner_id", post.OwnerID)
	webutil.RespondWithMessage(w, http.StatusCreated, "Post created successfully", map[string]any{"post": post})
	return nil
}

func (h *PostHandler) HandleGetPosts(w http.ResponseWriter, r *http.Request) error {
	posts, err := h.Repo.GetPosts(r.Context())
	if err != nil {
		return webutil.ErrInternalServerWrap("Server error while fetching posts", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, posts)
	return nil
}

func (h *PostHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) error {
	postID, err := postIDParam(r)
	if err != nil {
		return err
	}
	post, err := h.loadPost(r.Context(), postID)
	if err != nil {
		return err
	}
	webutil.RespondWithJSON(w, http.StatusOK, post)
	return nil
}

func (h *PostHandler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) error {
	processed, err := h.decodePostRequest(r)
	if err != nil {
		return err
	}
	post, _, err := h.loadOwnedPost(r, "You can only update your own posts")
	if err != nil {
		return err
	}

	post.Title = processed.Title
	post.Content = processed.HTML
	post.Excerpt = processed.Excerpt
	post.UpdatedAt = time.Now().UTC()

	if err := h.Repo.UpdatePost(r.Context(), post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webutil.ErrNotFound("Post not found")
		}
		return webutil.ErrInternalServerWrap("Error updating post", err)
	}

	webutil.RespondWithMessage(w, http.StatusOK, "Post updated successfully", map[string]any{"post": post})
	return nil
}

func (h *PostHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) error {
	post, id, err := h.loadOwnedPost(r, "You can only delete your own posts")
	if err != nil {
		return err
	}

	if err := h.Repo.DeletePost(r.Context(), post.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webutil.ErrNotFound("Post not found")
		}
		return webutil.ErrInternalServerWrap("Error deleting post", err)
	}

	slog.Info("Post deleted", "post_id", post.ID, "owner_id", id.UserID)
	webutil.RespondWithMessage(w, http.StatusOK, "Post deleted successfully", map[string]any{"post": post})
	return nil
}

// HandleExportPost streams the post as an EPUB download.
func (h *PostHandler) HandleExportPost(w http.ResponseWriter, r *http.Request) error {
	postID, err := postIDParam(r)
	if err != nil {
		return err
	}
	post, err := h.loadPost(r.Context(), postID)
	if err != nil {
		return err
	}

	// Render fully before writing so a failure can still become a JSON error.
	var buf bytes.Buffer
	if _, err := h.Exporter.GeneratePost(r.Context(), post, &buf); err != nil {
		return webutil.ErrInternalServerWrap("Error generating ebook", err)
	}

	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeEPUB)
	w.Header().Set(webutil.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.epub"`, post.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return nil
}
