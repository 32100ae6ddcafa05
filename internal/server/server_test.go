package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/vecsync/internal/chunking"
	"github.com/ziadkadry99/vecsync/internal/collections"
	"github.com/ziadkadry99/vecsync/internal/db"
	"github.com/ziadkadry99/vecsync/internal/search"
	"github.com/ziadkadry99/vecsync/internal/syncer"
	"github.com/ziadkadry99/vecsync/internal/vectordb"
)

type mockEmbedder struct{ dims int }

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%m.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		results[i] = vec
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := collections.NewStore(t.TempDir(), collections.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	vectors := vectordb.NewChromemStore(&mockEmbedder{dims: 64})
	meta := syncer.NewMetadataStore(database)
	sync := syncer.New(store, meta, vectors, syncer.Config{
		StaleTimeout:    10 * time.Minute,
		CallTimeout:     30 * time.Second,
		DefaultStrategy: chunking.StrategySentence,
		ChunkParams:     chunking.Params{ChunkSize: 16},
	})

	srv := New(Config{Port: 0}, store, sync, search.NewEngine(vectors))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body: %s", body)
	}
}

func TestServer_FullLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// Create a collection.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/collections/",
		map[string]string{"name": "notes"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create collection: %d", resp.StatusCode)
	}

	// Upload a file.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/collections/notes/files/a.md",
		strings.NewReader("Hello world. Goodbye world."))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload file: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("upload file: %d", resp2.StatusCode)
	}

	// Status before any sync: never_synced with pending changes.
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/sync/notes/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d (%s)", resp.StatusCode, body)
	}
	var status syncer.CollectionSyncStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != syncer.StatusNeverSynced || !status.HasPendingChanges {
		t.Errorf("pre-sync status: %+v", status)
	}

	// Sync.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/sync/notes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync: %d (%s)", resp.StatusCode, body)
	}
	var result syncer.SyncResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != syncer.StatusInSync || result.ProcessedFiles != 1 || result.TotalChunks != 2 {
		t.Errorf("sync result: %+v", result)
	}

	// Status after sync: in_sync, nothing pending.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sync/notes/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != syncer.StatusInSync || status.HasPendingChanges {
		t.Errorf("post-sync status: %+v", status)
	}

	// Search finds the synced content.
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/search", map[string]any{
		"query":      "Goodbye world.",
		"collection": "notes",
		"limit":      2,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search: %d (%s)", resp.StatusCode, body)
	}
	var searchResp struct {
		Results []search.Result `json:"results"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(searchResp.Results) == 0 {
		t.Fatal("search returned no results")
	}
	if searchResp.Results[0].Path != "a.md" {
		t.Errorf("top result path: %s", searchResp.Results[0].Path)
	}

	// Deleting the collection cascades; a search afterwards is empty.
	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/collections/notes", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete collection: %d", resp.StatusCode)
	}
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/search", map[string]any{
		"query": "Goodbye world.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search after delete: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(searchResp.Results) != 0 {
		t.Errorf("vectors survived collection deletion: %+v", searchResp.Results)
	}
}

func TestServer_SyncErrors(t *testing.T) {
	ts := newTestServer(t)

	// Unknown collection.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sync/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing collection: got %d, want 404 (%s)", resp.StatusCode, body)
	}
	var errBody map[string]string
	if err := json.Unmarshal(body, &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["code"] != "COLLECTION_NOT_FOUND" {
		t.Errorf("error code: %s", errBody["code"])
	}

	// Invalid strategy.
	doJSON(t, http.MethodPost, ts.URL+"/api/collections/", map[string]string{"name": "notes"})
	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/sync/notes",
		map[string]string{"chunking_strategy": "semantic"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid strategy: got %d, want 400 (%s)", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["code"] != "INVALID_STRATEGY" {
		t.Errorf("error code: %s", errBody["code"])
	}
}

func TestServer_AllStatuses(t *testing.T) {
	ts := newTestServer(t)

	for _, name := range []string{"alpha", "beta"} {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/collections/",
			map[string]string{"name": name})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: %d", name, resp.StatusCode)
		}
	}

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sync/alpha", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync alpha: %d (%s)", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sync/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("all statuses: %d", resp.StatusCode)
	}
	var statuses map[string]syncer.CollectionSyncStatus
	if err := json.Unmarshal(body, &statuses); err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	if statuses["alpha"].Status != syncer.StatusInSync {
		t.Errorf("alpha: %s", statuses["alpha"].Status)
	}
	if statuses["beta"].Status != syncer.StatusNeverSynced {
		t.Errorf("beta: %s", statuses["beta"].Status)
	}
}

func TestServer_DeleteVectors(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/collections/", map[string]string{"name": "notes"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/collections/notes/files/a.md",
		strings.NewReader("Some indexed content."))
	resp0, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp0.Body.Close()

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sync/notes", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync: %d (%s)", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/sync/notes/vectors", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete vectors: %d", resp.StatusCode)
	}

	// Collection reads as never synced again, with pending changes.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/sync/notes/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var status syncer.CollectionSyncStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Status != syncer.StatusNeverSynced || !status.HasPendingChanges {
		t.Errorf("status after vector purge: %+v", status)
	}
}

func TestServer_CollectionCRUD(t *testing.T) {
	ts := newTestServer(t)

	// Empty listing is [] not null.
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/collections/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("empty listing: %s", body)
	}

	// Invalid name rejected.
	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/collections/",
		map[string]string{"name": ".bad"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid name: got %d, want 400", resp.StatusCode)
	}

	// Duplicate rejected with conflict.
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/collections/",
			map[string]string{"name": "dup"})
		if resp.StatusCode != want {
			t.Errorf("create #%d: got %d, want %d", i+1, resp.StatusCode, want)
		}
	}

	// File listing reflects uploads.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/collections/dup/files/x.md",
		strings.NewReader("content"))
	respUp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	respUp.Body.Close()

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/collections/dup/files", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list files: %d", resp.StatusCode)
	}
	var files []map[string]any
	if err := json.Unmarshal(body, &files); err != nil {
		t.Fatalf("decode files: %v", err)
	}
	if len(files) != 1 || files[0]["path"] != "x.md" {
		t.Errorf("files: %v", files)
	}
}

func TestServer_SearchValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/search", map[string]string{"query": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty query: got %d, want 400", resp.StatusCode)
	}
}

func TestServer_RepeatedSync(t *testing.T) {
	// Sequential syncs must both succeed; the exclusive slot only rejects
	// overlapping requests (covered in the syncer package tests).
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/api/collections/", map[string]string{"name": "notes"})

	for i := 0; i < 2; i++ {
		resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sync/notes", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("sync #%d: %d (%s)", i+1, resp.StatusCode, body)
		}
	}
}
