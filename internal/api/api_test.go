package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/starford/orgsynth/internal/browse"
	"github.com/starford/orgsynth/internal/models"
	"github.com/starford/orgsynth/internal/output"
	"github.com/starford/orgsynth/internal/store"
	"github.com/starford/orgsynth/internal/testutil"
	"github.com/starford/orgsynth/internal/testutil/fixture"
)

// testEnv loads the fixture dataset into a temp SQLite DB and output
// directory and returns the router. A non-empty token enables auth.
func testEnv(t *testing.T, token string) http.Handler {
	t.Helper()

	dbFile, err := os.CreateTemp("", "orgsynth-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, fs := testutil.TestOutput(t)
	out := fixture.Output(t)
	if _, err := output.NewManagerFor(fs, fixture.Quiet).Write(context.Background(), out); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Sync(db, fs, fixture.Quiet); err != nil {
		t.Fatal(err)
	}
	return NewRouter(browse.NewService(db, fs), token != "", token)
}

func get(t *testing.T, h http.Handler, target string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestListEntities(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/entities?type=doc&limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[EntityListResponse](t, w)
	if resp.Total != 4 || len(resp.Entities) != 2 || resp.Entities[0].ID != "D1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestListEntities_BadType(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/entities?type=widget"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGetEntity(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/entities/DOC/D3")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Record struct {
			Type    string         `json:"type"`
			ID      string         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"record"`
		Neighbors []browse.Neighbor `json:"neighbors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Record.ID != "D3" || body.Record.Payload["previous_version_id"] != "D2" {
		t.Errorf("record = %+v", body.Record)
	}
	if len(body.Neighbors) == 0 {
		t.Error("expected neighbors")
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/entities/doc/D404"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestNeighbors(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/entities/person/P2/neighbors?limit=3")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[NeighborsResponse](t, w)
	if resp.Node.ID != "P2" || len(resp.Neighbors) == 0 || len(resp.Neighbors) > 3 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDocumentMarkdown(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/documents/D1/markdown")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "#customer-churn") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestListEdges(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/edges?type=authored&node=doc:D1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[EdgeListResponse](t, w)
	if resp.Total != 1 || resp.Edges[0].Type != models.EdgeAuthored {
		t.Errorf("response = %+v", resp)
	}

	for _, bad := range []string{"/edges?type=likes", "/edges?node=D1", "/edges?min_weight=abc", "/edges?min_weight=3"} {
		if w := get(t, router, bad); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", bad, w.Code)
		}
	}
}

func TestListOverlaps(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/overlaps?team=Marketing")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[OverlapListResponse](t, w)
	for _, o := range resp.Overlaps {
		if o.Teams[0] != "Marketing" && o.Teams[1] != "Marketing" {
			t.Errorf("overlap %s does not involve Marketing", o.ID)
		}
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/search?q=churn")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[SearchResponse](t, w)
	if len(resp.Results) == 0 {
		t.Error("expected search results")
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestReportAndStats(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/report")
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	var rep struct {
		Seed     int64  `json:"seed"`
		Checksum string `json:"checksum"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Seed != 42 || rep.Checksum == "" {
		t.Errorf("report = %+v", rep)
	}

	stats := decode[StatsResponse](t, get(t, router, "/stats"))
	if stats.Counts[models.TypePerson] != 3 || stats.Total == 0 {
		t.Errorf("stats = %+v", stats)
	}

	files := decode[FileListResponse](t, get(t, router, "/files"))
	if len(files.Files) == 0 {
		t.Error("expected output files")
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret")
	if w := get(t, router, "/stats", "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret")
	if w := get(t, router, "/stats"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret")
	if w := get(t, router, "/stats", "Authorization", "Bearer nope"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/stats"); w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
