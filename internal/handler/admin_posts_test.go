package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/model"
	"github.com/mtmsolution/site/internal/store"
)

func newAdminPostsFixture(t *testing.T) (*AdminPostsHandler, *store.PostStore) {
	t.Helper()
	db := setupTestDB(t)
	posts := store.NewPostStore(db)
	audit := store.NewAuditLogStore(db)
	tmpl := testTemplates(t, "admin_posts.html")
	h := NewAdminPostsHandler(posts, audit, tmpl, "http://localhost:8080", discardLogger())
	return h, posts
}

func postForm(values url.Values, target string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestAdminPostCreateSlugifiesTitle(t *testing.T) {
	h, posts := newAdminPostsFixture(t)

	form := url.Values{
		"title":   {"Tendências de Eventos 2026"},
		"content": {"Corpo do post."},
	}
	w := do(h.Create, withAdmin(postForm(form, "/admin/posts"), auth.RoleEditor))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	post, err := posts.GetBySlug("tendencias-de-eventos-2026")
	if err != nil || post == nil {
		t.Fatalf("post by slug = %v (err %v)", post, err)
	}
}

func TestAdminPostCreateRequiresTitleAndContent(t *testing.T) {
	h, _ := newAdminPostsFixture(t)

	form := url.Values{"title": {"Sem corpo"}}
	w := do(h.Create, withAdmin(postForm(form, "/admin/posts"), auth.RoleEditor))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestAdminPostUpdateKeepsSlugUnique(t *testing.T) {
	h, posts := newAdminPostsFixture(t)

	if _, err := posts.Create(&model.Post{Title: "Primeiro", Content: "a"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := posts.Create(&model.Post{Title: "Segundo", Content: "b"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	form := url.Values{
		"title":   {"Segundo"},
		"slug":    {"primeiro"},
		"content": {"b atualizado"},
	}
	r := postForm(form, "/admin/posts/2")
	r.SetPathValue("id", "2")
	w := do(h.Update, withAdmin(r, auth.RoleEditor))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	updated, err := posts.GetByID(second.ID)
	if err != nil || updated == nil {
		t.Fatalf("get updated: %v (err %v)", updated, err)
	}
	if updated.Slug != "primeiro-2" {
		t.Errorf("slug = %q, want primeiro-2", updated.Slug)
	}
	if updated.Content != "b atualizado" {
		t.Errorf("content = %q", updated.Content)
	}
}

func TestAdminPostDelete(t *testing.T) {
	h, posts := newAdminPostsFixture(t)

	created, err := posts.Create(&model.Post{Title: "Apagar", Content: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/admin/posts/1/delete", nil)
	r.SetPathValue("id", "1")
	w := do(h.Delete, withAdmin(r, auth.RoleEditor))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if p, _ := posts.GetByID(created.ID); p != nil {
		t.Error("post should be deleted")
	}
}

func TestAdminPostUpdateUnknownID(t *testing.T) {
	h, _ := newAdminPostsFixture(t)

	form := url.Values{"title": {"X"}, "content": {"y"}}
	r := postForm(form, "/admin/posts/99")
	r.SetPathValue("id", "99")
	if w := do(h.Update, withAdmin(r, auth.RoleEditor)); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
