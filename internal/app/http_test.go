package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quill/api/internal/export"
	"quill/api/internal/revisions"
	"quill/api/internal/search"
	"quill/api/internal/store"
	"quill/api/internal/workflow"
)

func newTestServer(env *testEnv) http.Handler {
	return NewHTTPServer(env.service, "*").Handler()
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestPreflightHasNoBody(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodOptions, "/content", nil)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", recorder.Code)
	}
	if recorder.Body.Len() != 0 {
		t.Errorf("204 response must carry no body, got %q", recorder.Body.String())
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin header = %q", got)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodGet, "/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("/health status = %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodGet, "/ready", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("/ready status = %d", recorder.Code)
	}

	env.store.pingErr = errors.New("connection refused")
	recorder = doRequest(t, handler, http.MethodGet, "/ready", nil)
	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("/ready with dead database status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["status"] != "not_ready" {
		t.Errorf("status = %v", payload["status"])
	}
}

func TestSubmitContentEndpoint(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodPost, "/content", validInput())
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	contentID, _ := payload["contentId"].(string)
	if !strings.HasPrefix(contentID, "content_") {
		t.Errorf("contentId = %q", contentID)
	}
	if payload["status"] != string(workflow.StatusPending) {
		t.Errorf("status = %v", payload["status"])
	}

	recorder = doRequest(t, handler, http.MethodGet, "/content/"+contentID, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get status = %d", recorder.Code)
	}
	payload = decodeResponse(t, recorder)
	if payload["workflowStatus"] != string(workflow.StatusPending) {
		t.Errorf("workflowStatus = %v", payload["workflowStatus"])
	}
}

func TestSubmitContentMissingFields(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodPost, "/content", map[string]any{"title": "Only a title"})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["code"] != "VALIDATION_ERROR" {
		t.Errorf("code = %v", payload["code"])
	}
	details := payload["details"].(map[string]any)
	missing := details["missing"].([]any)
	if len(missing) != 3 {
		t.Errorf("missing = %v", missing)
	}
}

func TestGetContentNotFound(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodGet, "/content/content_nope", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}
	if decodeResponse(t, recorder)["code"] != "NOT_FOUND" {
		t.Error("expected NOT_FOUND code")
	}
}

func TestListContentEndpoint(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	seedContent(env, nil)

	recorder := doRequest(t, handler, http.MethodGet, "/content", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["total"].(float64) != 1 {
		t.Errorf("total = %v", payload["total"])
	}
}

func TestCommentEndpoints(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	contentID := seedContent(env, nil)

	recorder := doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/comments",
		CommentInput{UserID: "user_1", UserName: "Sam", Text: "Tighten the intro"})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, handler, http.MethodGet, "/content/"+contentID+"/comments", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["total"].(float64) != 1 {
		t.Errorf("total = %v", payload["total"])
	}
}

func TestVoteEndpoint(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	contentID := seedContent(env, func(item *store.ContentItem) {
		item.Recommendations = []store.Recommendation{{ID: "rec_1", Type: "publish"}}
	})

	recorder := doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/recommendations/rec_1/vote",
		VoteInput{UserID: "user_1", Vote: "up"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	votes := payload["votes"].(map[string]any)
	if votes["upvotes"].(float64) != 1 {
		t.Errorf("upvotes = %v", votes["upvotes"])
	}

	recorder = doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/recommendations/rec_1/vote",
		VoteInput{UserID: "user_1", Vote: "maybe"})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("invalid direction status = %d", recorder.Code)
	}
}

func TestImproveEndpointLifecycle(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	contentID := seedContent(env, nil)

	recorder := doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/improve", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("improve before analysis status = %d", recorder.Code)
	}
	if decodeResponse(t, recorder)["code"] != "ANALYSIS_REQUIRED" {
		t.Error("expected ANALYSIS_REQUIRED code")
	}

	item := env.store.items[contentID]
	item.Analysis = &store.AIAnalysisResult{QualityScore: 55, AnalyzedAt: time.Now()}
	env.store.items[contentID] = item

	recorder = doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/improve", nil)
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("improve status = %d, body %s", recorder.Code, recorder.Body.String())
	}

	recorder = doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/improve", nil)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("second improve status = %d", recorder.Code)
	}
	if decodeResponse(t, recorder)["code"] != "IMPROVEMENT_IN_PROGRESS" {
		t.Error("expected IMPROVEMENT_IN_PROGRESS code")
	}
}

func TestApplyImprovementEndpoint(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	contentID := seedContent(env, func(item *store.ContentItem) {
		item.Improved = &store.ImprovedContent{
			OriginalBody: item.Body,
			ImprovedBody: strings.Repeat("z", 600),
			Status:       store.ImprovementCompleted,
			GeneratedAt:  time.Now(),
		}
	})

	recorder := doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/apply-improvement", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	if payload["workflowStatus"] != string(workflow.StatusPending) {
		t.Errorf("workflowStatus = %v", payload["workflowStatus"])
	}
	if payload["body"] != strings.Repeat("z", 600) {
		t.Error("body must be the improved draft")
	}
}

func TestExportEndpointBinaryAndArchive(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	contentID := seedContent(env, nil)

	recorder := doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/export",
		ExportInput{Format: "html"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if got := recorder.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if recorder.Body.String() != "<p>hi</p>" {
		t.Errorf("body = %q", recorder.Body.String())
	}

	// When the exporter archived the file the endpoint returns a JSON
	// envelope with a download link instead of the bytes.
	env.exporter.result = &export.Result{
		Filename:    "out.pdf",
		MimeType:    "application/pdf",
		ObjectKey:   contentID + "/1-out.pdf",
		DownloadURL: "https://minio.local/quill-exports/out.pdf",
	}
	recorder = doRequest(t, handler, http.MethodPost, "/content/"+contentID+"/export",
		ExportInput{Format: "pdf", Archive: true})
	if recorder.Code != http.StatusOK {
		t.Fatalf("archived status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["downloadUrl"] != "https://minio.local/quill-exports/out.pdf" {
		t.Errorf("downloadUrl = %v", payload["downloadUrl"])
	}
}

func TestRevisionsEndpoint(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)
	contentID := seedContent(env, nil)
	env.revisions.history = []revisions.Revision{
		{Hash: "bbb2222", Message: "Apply AI improvement", CreatedAt: time.Now()},
		{Hash: "aaa1111", Message: "Import content baseline", CreatedAt: time.Now().Add(-time.Hour)},
	}

	recorder := doRequest(t, handler, http.MethodGet, "/content/"+contentID+"/revisions", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["total"].(float64) != 2 {
		t.Errorf("total = %v", payload["total"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv()
	env.search.response = search.Response{
		Results: []search.Result{{ID: "content_1", Title: "Hit"}},
		Total:   1,
	}
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodGet, "/content/search?q=hit&limit=5", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	payload := decodeResponse(t, recorder)
	if payload["total"].(float64) != 1 {
		t.Errorf("total = %v", payload["total"])
	}
	if payload["query"] != "hit" {
		t.Errorf("query = %v", payload["query"])
	}

	recorder = doRequest(t, handler, http.MethodGet, "/content/search?limit=lots", nil)
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad limit status = %d", recorder.Code)
	}
}

func TestRetentionLastRunEndpoint(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	recorder := doRequest(t, handler, http.MethodGet, "/retention/last-run", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status = %d", recorder.Code)
	}

	env.store.lastRun = &store.RetentionRun{Deleted: 2, Scanned: 5, RanAt: time.Now()}
	recorder = doRequest(t, handler, http.MethodGet, "/retention/last-run", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if decodeResponse(t, recorder)["deleted"].(float64) != 2 {
		t.Error("expected recorded run")
	}
}

func TestUnknownRoutes(t *testing.T) {
	env := newTestEnv()
	handler := newTestServer(env)

	if recorder := doRequest(t, handler, http.MethodGet, "/nope", nil); recorder.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", recorder.Code)
	}
	if recorder := doRequest(t, handler, http.MethodPut, "/content", nil); recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("bad method status = %d", recorder.Code)
	}
	contentID := seedContent(env, nil)
	if recorder := doRequest(t, handler, http.MethodPatch, "/content/"+contentID, nil); recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("bad item method status = %d", recorder.Code)
	}
}
