package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/ywmark/internal/testutil"
)

// testEnv sets up a temp library, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (string, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (string, http.Handler) {
	t.Helper()
	dir, svc, _ := testutil.TestLibraryService(t)
	return dir, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		req = httptest.NewRequest(method, target, bytes.NewReader(data))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func convertBody(path string, overwrite bool) ConvertRequest {
	return ConvertRequest{Path: path, Overwrite: overwrite}
}

func TestConvertAndListProjects(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, "novel.yw7", testutil.SampleProject)

	w := do(t, router, http.MethodPost, "/convert", convertBody("novel.yw7", false))
	if w.Code != http.StatusOK {
		t.Fatalf("convert status = %d, body = %s", w.Code, w.Body.String())
	}
	var conv struct {
		Message string `json:"message"`
		Result  struct {
			Target    string `json:"target"`
			Direction string `json:"direction"`
		} `json:"result"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &conv)
	if conv.Result.Target != "novel.md" || conv.Result.Direction != "export" || !strings.Contains(conv.Message, "novel.md") {
		t.Errorf("convert response = %+v", conv)
	}

	w = do(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list ProjectListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 || list.Projects[0].Path != "novel.md" || list.Projects[1].Title != "Novel" {
		t.Errorf("list = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/conversions", nil)
	var runs ConversionsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &runs)
	if w.Code != http.StatusOK || len(runs.Conversions) != 1 || runs.Conversions[0].Target != "novel.md" {
		t.Errorf("conversions = %d %+v", w.Code, runs)
	}
}

func TestConvert_BadRequests(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/convert", convertBody("", false)); w.Code != http.StatusBadRequest {
		t.Errorf("missing path = %d, want 400", w.Code)
	}
}

func TestConvert_ErrorStatuses(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, "novel.yw7", testutil.SampleProject)
	testutil.WriteFile(t, dir, "novel.md", "## Arrival\n\nOne.\n\n* * *\n\nTwo.\n\n* * *\n\nThree.\n")
	testutil.WriteFile(t, dir, "locked.yw7", testutil.SampleProject)
	testutil.WriteFile(t, dir, "locked.yw7.lock", "")
	testutil.WriteFile(t, dir, "broken.yw7", "<NOVEL/>")

	cases := []struct {
		name string
		body ConvertRequest
		want int
	}{
		{"missing", convertBody("ghost.md", false), http.StatusNotFound},
		{"unsupported", convertBody("notes.txt", false), http.StatusUnsupportedMediaType},
		{"parse", convertBody("broken.yw7", false), http.StatusUnprocessableEntity},
		{"busy", convertBody("locked.yw7", false), http.StatusLocked},
		{"mismatch", convertBody("novel.md", false), http.StatusConflict},
		{"declined overwrite", convertBody("novel.yw7", false), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/convert", tc.body)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}

	if got := testutil.ReadFile(t, dir, "novel.yw7"); got != testutil.SampleProject {
		t.Error("project modified by failed import")
	}
}

func TestConvert_WriteProtected(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, "novel.yw7", testutil.SampleProject)
	md := testutil.WriteFile(t, dir, "novel.md", "old")
	if err := os.Chmod(md, 0o444); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodPost, "/convert", convertBody("novel.yw7", true))
	if w.Code != http.StatusForbidden {
		t.Errorf("read-only target = %d, want 403", w.Code)
	}
}

func TestGetProject(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, filepath.Join("book", "novel.yw7"), testutil.SampleProject)

	for _, target := range []string{"/projects/book/novel.yw7", "/projects/book%2Fnovel.yw7"} {
		w := do(t, router, http.MethodGet, target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d, body = %s", target, w.Code, w.Body.String())
		}
		var d ProjectDetail
		_ = json.Unmarshal(w.Body.Bytes(), &d)
		if d.Path != "book/novel.yw7" || d.Title != "Novel" || len(d.Chapters) != 2 {
			t.Errorf("%s detail = %+v", target, d)
		}
	}
}

func TestGetProject_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/projects/nope.yw7", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing project = %d, want 404", w.Code)
	}
}

func TestGetProject_Unsupported(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, "notes.txt", "plain")

	w := do(t, router, http.MethodGet, "/projects/notes.txt", nil)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("unsupported = %d, want 415", w.Code)
	}
}

func TestPreview(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, "novel.yw7", testutil.SampleProject)

	w := do(t, router, http.MethodGet, "/preview/novel.yw7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<h2>Arrival</h2>") {
		t.Errorf("preview = %s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	dir, router := testEnv(t, "")
	testutil.WriteFile(t, dir, "novel.yw7", testutil.SampleProject)
	if w := do(t, router, http.MethodPost, "/convert", convertBody("novel.yw7", false)); w.Code != http.StatusOK {
		t.Fatalf("convert status = %d", w.Code)
	}

	w := do(t, router, http.MethodGet, "/search?q=lighthouse&limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].SceneID != "1" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = do(t, router, http.MethodGet, "/search?q=zzzz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("empty search = %d %s", w.Code, w.Body.String())
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/projects", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", sseStub)

	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router := testEnvWithSSE(t, false, "", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
