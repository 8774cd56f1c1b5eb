package handler

import (
	"database/sql"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/database"
	"github.com/mtmsolution/site/internal/token"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTemplates builds one-line template sets that echo the fields the tests
// assert on.
func testTemplates(t *testing.T, names ...string) map[string]*template.Template {
	t.Helper()
	const layout = `{{.Title}}|err={{.Error}}|name={{.Name}}|company={{.Company}}|phone={{.Phone}}|user={{.Username}}`
	templates := make(map[string]*template.Template)
	for _, name := range names {
		templates[name] = template.Must(template.New("layout.html").Parse(layout))
	}
	return templates
}

// withClaims attaches visitor claims the way the access gate would.
func withClaims(r *http.Request, subject, emailAddr string) *http.Request {
	return r.WithContext(auth.WithClaims(r.Context(), &token.Claims{
		Subject:  subject,
		Email:    emailAddr,
		Provider: token.ProviderMagicLink,
	}))
}

func do(handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}
