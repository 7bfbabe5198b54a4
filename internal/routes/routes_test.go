package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/cache"
	"github.com/Kiril-Hr/blog-source-back/internal/config"
	"github.com/Kiril-Hr/blog-source-back/internal/models"
	"github.com/Kiril-Hr/blog-source-back/internal/services"
	"github.com/Kiril-Hr/blog-source-back/internal/storage"
	"github.com/Kiril-Hr/blog-source-back/internal/testutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type testServer struct {
	t       *testing.T
	engine  *gin.Engine
	db      *gorm.DB
	store   *storage.Store
	cleaner *services.Cleaner
}

type nopNotifier struct{}

func (nopNotifier) NotifyReview(models.User, models.Post) error { return nil }

func newServer(t *testing.T, moderators ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWT:        config.JWTConfig{Secret: "test-secret", TTL: time.Hour},
		Cache:      config.CacheConfig{TTL: time.Minute},
		Cleanup:    config.CleanupConfig{Interval: time.Hour, MaxAttempts: 3, RetryBase: time.Minute},
		Moderators: moderators,
	}
	store := storage.New(filepath.Join(t.TempDir(), "uploads"))
	cleaner := services.NewCleaner(db, store, cfg.Cleanup)

	engine := SetupRoutes(Deps{
		DB:       db,
		Config:   cfg,
		Store:    store,
		Cleaner:  cleaner,
		Cache:    cache.NewNoop(),
		Notifier: nopNotifier{},
	})
	return &testServer{t: t, engine: engine, db: db, store: store, cleaner: cleaner}
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) expect(w *httptest.ResponseRecorder, status int) {
	s.t.Helper()
	if w.Code != status {
		s.t.Fatalf("status = %d, want %d; body: %s", w.Code, status, w.Body.String())
	}
}

type account struct {
	ID    uint
	Token string
}

func (s *testServer) register(email string) account {
	s.t.Helper()
	w := s.do("POST", "/auth/register", gin.H{"email": email, "password": "secret", "fullName": "Jane Doe"}, "")
	s.expect(w, http.StatusOK)

	var resp struct {
		ID    uint   `json:"id"`
		Token string `json:"token"`
	}
	decode(s.t, w, &resp)
	return account{ID: resp.ID, Token: resp.Token}
}

func (s *testServer) createPost(a account, title, text string, tags ...string) models.Post {
	s.t.Helper()
	w := s.do("POST", "/posts", gin.H{"title": title, "text": text, "tags": tags}, a.Token)
	s.expect(w, http.StatusOK)
	var post models.Post
	decode(s.t, w, &post)
	return post
}

func (s *testServer) me(a account) models.User {
	s.t.Helper()
	w := s.do("GET", "/auth/me", nil, a.Token)
	s.expect(w, http.StatusOK)
	var u models.User
	decode(s.t, w, &u)
	return u
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	w := s.do("POST", "/auth/register", gin.H{"email": "jane@example.com", "password": "secret", "fullName": "Jane Doe"}, "")
	s.expect(w, http.StatusOK)
	if strings.Contains(w.Body.String(), "passwordHash") || strings.Contains(w.Body.String(), "$2a$") {
		t.Errorf("register leaked the password hash: %s", w.Body.String())
	}

	w = s.do("POST", "/auth/register", gin.H{"email": "jane@example.com", "password": "secret", "fullName": "Jane Again"}, "")
	s.expect(w, http.StatusConflict)

	w = s.do("POST", "/auth/login", gin.H{"email": "jane@example.com", "password": "wrong-pass"}, "")
	s.expect(w, http.StatusBadRequest)

	w = s.do("POST", "/auth/login", gin.H{"email": "nobody@example.com", "password": "secret"}, "")
	s.expect(w, http.StatusNotFound)

	w = s.do("POST", "/auth/login", gin.H{"email": "jane@example.com", "password": "secret"}, "")
	s.expect(w, http.StatusOK)
	var resp struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	if resp.Email != "jane@example.com" || resp.Token == "" {
		t.Errorf("login response = %+v", resp)
	}

	me := s.me(account{Token: resp.Token})
	if me.Email != "jane@example.com" {
		t.Errorf("me = %+v", me)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newServer(t)

	w := s.do("POST", "/auth/register", gin.H{"email": "not-an-email", "password": "123", "fullName": "Jo"}, "")
	s.expect(w, http.StatusBadRequest)

	var resp struct {
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	decode(t, w, &resp)
	fields := map[string]bool{}
	for _, e := range resp.Errors {
		fields[e.Field] = true
	}
	for _, f := range []string{"email", "password", "fullName"} {
		if !fields[f] {
			t.Errorf("missing validation error for %s in %s", f, w.Body.String())
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newServer(t)

	s.expect(s.do("GET", "/auth/me", nil, ""), http.StatusUnauthorized)
	s.expect(s.do("POST", "/posts", gin.H{"title": "Hello", "text": "World"}, ""), http.StatusUnauthorized)
	s.expect(s.do("GET", "/auth/me", nil, "garbage"), http.StatusUnauthorized)
}

func TestPostScenario(t *testing.T) {
	s := newServer(t)
	u := s.register("owner@example.com")

	imageURL := s.uploadImage(u, "sunset.png")
	if imageURL != "/uploads/post/sunset.png" {
		t.Fatalf("upload url = %q", imageURL)
	}
	imagePath := filepath.Join(s.store.Root(), "post", "sunset.png")

	w := s.do("POST", "/posts", gin.H{"title": "Sunset", "text": "Look at this", "imageUrl": imageURL, "tags": []string{"photo"}}, u.Token)
	s.expect(w, http.StatusOK)
	var post models.Post
	decode(t, w, &post)

	if got := s.me(u).PostsCount; got != 1 {
		t.Fatalf("postsCount = %d, want 1", got)
	}

	for i := 0; i < 2; i++ {
		s.expect(s.do("GET", fmt.Sprintf("/posts/%d", post.ID), nil, ""), http.StatusOK)
	}
	w = s.do("GET", fmt.Sprintf("/posts/%d", post.ID), nil, "")
	s.expect(w, http.StatusOK)
	var viewed models.Post
	decode(t, w, &viewed)
	if viewed.ViewsCount != 3 {
		t.Errorf("viewsCount = %d, want 3", viewed.ViewsCount)
	}
	if got := s.me(u).TotalViewsCount; got != 3 {
		t.Errorf("totalViewsCount = %d, want 3", got)
	}

	s.expect(s.do("DELETE", fmt.Sprintf("/posts/%d/%d", post.ID, u.ID), nil, u.Token), http.StatusOK)
	if got := s.me(u).PostsCount; got != 0 {
		t.Errorf("postsCount after delete = %d, want 0", got)
	}
	s.expect(s.do("GET", fmt.Sprintf("/posts/%d", post.ID), nil, ""), http.StatusNotFound)

	if _, err := s.cleaner.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(imagePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image should be removed, stat err = %v", err)
	}
}

func TestUpdateAndDeletePermissions(t *testing.T) {
	s := newServer(t)
	owner := s.register("owner@example.com")
	other := s.register("other@example.com")
	post := s.createPost(owner, "Original", "Original text")

	path := fmt.Sprintf("/posts/%d", post.ID)
	s.expect(s.do("PATCH", path, gin.H{"title": "Hacked", "text": "Hacked text"}, other.Token), http.StatusForbidden)
	s.expect(s.do("PATCH", path, gin.H{"title": "Edited", "text": "Edited text", "tags": []string{"a"}}, owner.Token), http.StatusOK)
	s.expect(s.do("PATCH", "/posts/999", gin.H{"title": "Edited", "text": "Edited text"}, owner.Token), http.StatusNotFound)

	s.expect(s.do("DELETE", fmt.Sprintf("/posts/%d/%d", post.ID, owner.ID), nil, other.Token), http.StatusForbidden)
	s.expect(s.do("DELETE", fmt.Sprintf("/posts/%d/%d", post.ID, other.ID), nil, owner.Token), http.StatusBadRequest)
	s.expect(s.do("DELETE", fmt.Sprintf("/posts/%d/abc", post.ID), nil, owner.Token), http.StatusBadRequest)
}

func TestPortionHasMore(t *testing.T) {
	s := newServer(t)
	u := s.register("writer@example.com")
	for i := 0; i < 12; i++ {
		s.createPost(u, fmt.Sprintf("Post %d", i), fmt.Sprintf("Body number %d", i))
	}

	type portion struct {
		Posts      []models.Post `json:"posts"`
		InformData struct {
			CurrentPage int  `json:"currentPage"`
			HasMore     bool `json:"hasMore"`
		} `json:"informData"`
	}

	var first portion
	w := s.do("GET", "/posts/portion?page=1&limit=10", nil, "")
	s.expect(w, http.StatusOK)
	decode(t, w, &first)
	if len(first.Posts) != 10 || !first.InformData.HasMore || first.InformData.CurrentPage != 1 {
		t.Errorf("page 1: %d posts, informData %+v", len(first.Posts), first.InformData)
	}

	var second portion
	w = s.do("GET", "/posts/portion?page=2&limit=10", nil, "")
	s.expect(w, http.StatusOK)
	decode(t, w, &second)
	if len(second.Posts) != 2 || second.InformData.HasMore {
		t.Errorf("page 2: %d posts, informData %+v", len(second.Posts), second.InformData)
	}
}

func TestPopularAndTags(t *testing.T) {
	s := newServer(t)
	u := s.register("writer@example.com")
	quiet := s.createPost(u, "Quiet", "Nobody reads", "a", "b")
	loud := s.createPost(u, "Loud", "Everyone reads", "c")

	for i := 0; i < 3; i++ {
		s.do("GET", fmt.Sprintf("/posts/%d", loud.ID), nil, "")
	}

	w := s.do("GET", "/posts/popular", nil, "")
	s.expect(w, http.StatusOK)
	var popular []models.Post
	decode(t, w, &popular)
	if len(popular) != 2 || popular[0].ID != loud.ID || popular[1].ID != quiet.ID {
		t.Errorf("popular order = %+v", popular)
	}
	if popular[0].User == nil {
		t.Error("popular posts should carry the author")
	}

	w = s.do("GET", "/tags", nil, "")
	s.expect(w, http.StatusOK)
	var tags []string
	decode(t, w, &tags)
	if len(tags) != 3 {
		t.Errorf("tags = %q, want 3 entries", tags)
	}
}

func TestTagsAreCappedAtThirty(t *testing.T) {
	s := newServer(t)
	u := s.register("tagger@example.com")
	for i := 0; i < 8; i++ {
		s.createPost(u, fmt.Sprintf("Tagged %d", i), fmt.Sprintf("Tagged body %d", i), "go", "go", "web", "api", "db")
	}

	w := s.do("GET", "/tags", nil, "")
	s.expect(w, http.StatusOK)
	var tags []string
	decode(t, w, &tags)
	if len(tags) != 30 {
		t.Errorf("got %d tags, want 30", len(tags))
	}
}

func TestCommentRoutes(t *testing.T) {
	s := newServer(t)
	u := s.register("talker@example.com")
	first := s.createPost(u, "First", "First post")
	second := s.createPost(u, "Second", "Second post")

	var created []models.Comment
	for _, postID := range []uint{first.ID, first.ID, second.ID} {
		w := s.do("POST", "/posts/comments", gin.H{"postId": postID, "text": "nice"}, u.Token)
		s.expect(w, http.StatusOK)
		var c models.Comment
		decode(t, w, &c)
		created = append(created, c)
	}
	s.expect(s.do("POST", "/posts/comments", gin.H{"postId": 999, "text": "lost"}, u.Token), http.StatusNotFound)
	s.expect(s.do("POST", "/posts/comments", gin.H{"text": "no post"}, u.Token), http.StatusBadRequest)

	w := s.do("GET", "/comments/groupById", nil, "")
	s.expect(w, http.StatusOK)
	var groups []models.CommentGroup
	decode(t, w, &groups)
	if len(groups) != 2 || groups[0].PostID != first.ID || groups[0].Count != 2 || groups[1].Count != 1 {
		t.Errorf("groups = %+v", groups)
	}

	w = s.do("GET", fmt.Sprintf("/comments/%d", first.ID), nil, "")
	s.expect(w, http.StatusOK)
	var comments []models.Comment
	decode(t, w, &comments)
	if len(comments) != 2 || comments[0].User == nil {
		t.Errorf("comments of first post = %+v", comments)
	}

	s.expect(s.do("DELETE", fmt.Sprintf("/comments/%d/%d", created[0].ID, first.ID), nil, u.Token), http.StatusOK)

	w = s.do("GET", fmt.Sprintf("/posts/%d", first.ID), nil, "")
	s.expect(w, http.StatusOK)
	var post models.Post
	decode(t, w, &post)
	if post.CommentsCount != 1 {
		t.Errorf("commentsCount = %d, want 1", post.CommentsCount)
	}
}

func TestModerationRoutes(t *testing.T) {
	s := newServer(t, "mod@example.com")
	author := s.register("author@example.com")
	mod := s.register("mod@example.com")

	w := s.do("POST", "/posts/checks", gin.H{"title": "Review me", "text": "Please review"}, author.Token)
	s.expect(w, http.StatusOK)
	var pending models.Post
	decode(t, w, &pending)

	s.expect(s.do("POST", "/posts/checks", gin.H{"title": "Copy", "text": "Please review"}, author.Token), http.StatusConflict)
	s.expect(s.do("GET", "/posts/checks", nil, author.Token), http.StatusForbidden)
	s.expect(s.do("GET", fmt.Sprintf("/posts/checks/user/%d", author.ID), nil, author.Token), http.StatusOK)
	s.expect(s.do("GET", fmt.Sprintf("/posts/checks/user/%d", mod.ID), nil, author.Token), http.StatusForbidden)

	w = s.do("GET", "/posts/checks", nil, mod.Token)
	s.expect(w, http.StatusOK)
	var checks []models.Post
	decode(t, w, &checks)
	if len(checks) != 1 || checks[0].ID != pending.ID {
		t.Errorf("checks = %+v", checks)
	}

	path := fmt.Sprintf("/posts/checks/%d", pending.ID)
	s.expect(s.do("GET", path, nil, mod.Token), http.StatusOK)
	s.expect(s.do("PATCH", path, gin.H{"title": "Reviewed", "text": "Please review", "isVerifyEdit": true, "comment": "ok"}, mod.Token), http.StatusOK)

	if got := s.me(author).PostsCount; got != 1 {
		t.Errorf("postsCount after approval = %d, want 1", got)
	}
	s.expect(s.do("GET", fmt.Sprintf("/posts/%d", pending.ID), nil, ""), http.StatusOK)
	s.expect(s.do("DELETE", path, nil, mod.Token), http.StatusNotFound)
}

func TestBlogsAndUserPage(t *testing.T) {
	s := newServer(t)
	writer := s.register("writer@example.com")
	reader := s.register("reader@example.com")
	s.createPost(writer, "Only post", "Only post text")

	w := s.do("GET", "/blogs", nil, reader.Token)
	s.expect(w, http.StatusOK)
	var blogs []models.User
	decode(t, w, &blogs)
	if len(blogs) != 1 || blogs[0].ID != writer.ID {
		t.Errorf("blogs = %+v", blogs)
	}

	w = s.do("GET", fmt.Sprintf("/user/%d", writer.ID), nil, "")
	s.expect(w, http.StatusOK)
	var page []json.RawMessage
	decode(t, w, &page)
	if len(page) != 2 {
		t.Fatalf("user page = %s", w.Body.String())
	}
	var posts []models.Post
	if err := json.Unmarshal(page[1], &posts); err != nil || len(posts) != 1 {
		t.Errorf("user posts = %s (%v)", page[1], err)
	}

	s.expect(s.do("GET", "/user/999", nil, ""), http.StatusNotFound)
}

func TestAvatarUpdateReplacesOldFile(t *testing.T) {
	s := newServer(t)
	u := s.register("face@example.com")
	other := s.register("other@example.com")

	first := s.upload(u, fmt.Sprintf("/avatar-update/%d", u.ID), "PATCH", "old.png")
	if first.Code != http.StatusOK {
		t.Fatalf("first avatar: %d %s", first.Code, first.Body.String())
	}
	second := s.upload(u, fmt.Sprintf("/avatar-update/%d", u.ID), "PATCH", "new.png")
	if second.Code != http.StatusOK {
		t.Fatalf("second avatar: %d %s", second.Code, second.Body.String())
	}
	if got := s.me(u).AvatarURL; got != "/uploads/user/new.png" {
		t.Errorf("avatarUrl = %q", got)
	}

	s.cleaner.RunOnce(context.Background())
	if _, err := os.Stat(filepath.Join(s.store.Root(), "user", "old.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old avatar should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.store.Root(), "user", "new.png")); err != nil {
		t.Errorf("new avatar missing: %v", err)
	}

	forbidden := s.upload(other, fmt.Sprintf("/avatar-update/%d", u.ID), "PATCH", "x.png")
	if forbidden.Code != http.StatusForbidden {
		t.Errorf("foreign avatar update: status %d", forbidden.Code)
	}
}

func TestDeleteImage(t *testing.T) {
	s := newServer(t)
	u := s.register("img@example.com")
	s.uploadImage(u, "tmp.png")

	s.expect(s.do("DELETE", "/image-delete/secret/tmp.png", nil, u.Token), http.StatusBadRequest)
	s.expect(s.do("DELETE", "/image-delete/post/tmp.png", nil, u.Token), http.StatusOK)

	s.cleaner.RunOnce(context.Background())
	if _, err := os.Stat(filepath.Join(s.store.Root(), "post", "tmp.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image should be removed, stat err = %v", err)
	}
}

func (s *testServer) uploadImage(a account, name string) string {
	s.t.Helper()
	w := s.upload(a, "/uploads/post", "POST", name)
	s.expect(w, http.StatusOK)
	var resp struct {
		URL string `json:"url"`
	}
	decode(s.t, w, &resp)
	return resp.URL
}

func (s *testServer) upload(a account, path, method, name string) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		s.t.Fatal(err)
	}
	part.Write([]byte("fake image bytes"))
	mw.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.Token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestDeleteImageRefusesFileInUse(t *testing.T) {
	s := newServer(t)
	owner := s.register("owner@example.com")
	other := s.register("other@example.com")

	url := s.uploadImage(owner, "mine.png")
	s.expect(s.do("POST", "/posts", gin.H{"title": "Mine", "text": "My picture", "imageUrl": url}, owner.Token), http.StatusOK)

	s.expect(s.do("DELETE", "/image-delete/post/mine.png", nil, other.Token), http.StatusConflict)
	s.expect(s.do("DELETE", "/image-delete/post/mine.png", nil, owner.Token), http.StatusConflict)

	s.cleaner.RunOnce(context.Background())
	if _, err := os.Stat(filepath.Join(s.store.Root(), "post", "mine.png")); err != nil {
		t.Errorf("image of a live post was removed: %v", err)
	}
}
