package routehandlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/coreybb/scribe/auth"
	"github.com/coreybb/scribe/models"
	"github.com/go-chi/chi/v5"
)

type mockPostStore struct {
	mu          sync.Mutex
	posts       map[string]models.Post
	failWith    error
	lookupCalls int
	updateCalls int
	deleteCalls int
}

func newMockPostStore() *mockPostStore {
	return &mockPostStore{posts: make(map[string]models.Post)}
}

func (m *mockPostStore) CreatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.posts[post.ID] = *post
	return nil
}

func (m *mockPostStore) GetPosts(ctx context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockPostStore) GetPostByID(ctx context.Context, postID string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	p, ok := m.posts[postID]
	if !ok {
		return nil, fmt.Errorf("post not found: %w", sql.ErrNoRows)
	}
	return &p, nil
}

func (m *mockPostStore) UpdatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	existing, ok := m.posts[post.ID]
	if !ok {
		return fmt.Errorf("post %s not found: %w", post.ID, sql.ErrNoRows)
	}
	existing.Title, existing.Content, existing.Excerpt, existing.UpdatedAt = post.Title, post.Content, post.Excerpt, post.UpdatedAt
	m.posts[post.ID] = existing
	return nil
}

func (m *mockPostStore) DeletePost(ctx context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if _, ok := m.posts[postID]; !ok {
		return fmt.Errorf("post %s not found: %w", postID, sql.ErrNoRows)
	}
	delete(m.posts, postID)
	return nil
}

func (m *mockPostStore) seed(id, ownerID string) models.Post {
	p := models.Post{
		ID:        id,
		Title:     "Seeded",
		Content:   "<p>Seeded content long enough.</p>",
		Excerpt:   "Seeded content long enough.",
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.posts[id] = p
	return p
}

type mockExporter struct {
	err error
}

func (m *mockExporter) GeneratePost(ctx context.Context, post *models.Post, w io.Writer) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	n, err := io.WriteString(w, "PK-epub-"+post.ID)
	return int64(n), err
}

// newRequest builds a request with an optional JSON body, chi URL params and caller identity.
func newRequest(t *testing.T, method, target string, body any, params map[string]string, id *auth.Identity) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if id != nil {
		ctx = auth.WithClaims(ctx, &auth.Claims{UserID: id.UserID, Email: id.Email})
	}
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON object: %v (%q)", err, rr.Body.String())
	}
	return body
}
