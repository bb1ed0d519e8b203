package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harwell/attest/internal/agent"
	"github.com/harwell/attest/internal/answer"
	"github.com/harwell/attest/internal/checklist"
	"github.com/harwell/attest/internal/evidence"
	"github.com/harwell/attest/internal/generation"
	"github.com/harwell/attest/internal/ingest"
	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/internal/policy"
	"github.com/harwell/attest/internal/testutil"
	"github.com/harwell/attest/internal/valuation"
)

// testEnv wires the full pipeline behind the router: temp catalog and
// audit databases, a temp corpus, the mock generation port and the
// default policy. authToken != "" enables bearer auth.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()

	db := testutil.TestCatalog(t)
	trail := testutil.TestTrail(t)
	_, corpus := testutil.TestCorpus(t)

	store := evidence.NewCatalogStore(db, nil)
	retriever := evidence.NewRetriever(store, evidence.DefaultMinScore, 5*time.Second, nil)
	port := &generation.MockPort{}
	synth := answer.NewSynthesizer(retriever, port, nil)
	guard := policy.NewGuard(policy.DefaultConfig())
	analyzer := checklist.NewAnalyzer(db, port, checklist.DefaultConfig(), evidence.DefaultMinScore, 5*time.Second, 2, nil)
	val := valuation.NewClient("", 0)
	ag := agent.New(synth, guard, analyzer, db, val, trail, nil, nil)
	ing := ingest.NewService(db, corpus, nil, nil)

	h := NewHandler(ag, ing, db, guard, trail)
	return NewRouter(h, authToken != "", authToken, nil)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	router := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", w.Code)
	}
}

func TestAskAbstainsOnEmptyCorpus(t *testing.T) {
	router := testEnv(t, "")

	w := postJSON(t, router, "/ask", map[string]string{
		"user":     "reviewer",
		"question": "What does the guidance require for hedge documentation?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp agent.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Errorf("status = %q, want ABSTAIN", resp.Answer.Status)
	}
	if resp.InteractionID == 0 {
		t.Error("decision was not audited")
	}

	// The abstention shows up in the audit trail.
	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var audit AuditListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &audit); err != nil {
		t.Fatalf("decode audit: %v", err)
	}
	if len(audit.Records) != 1 || audit.Records[0].ID != resp.InteractionID {
		t.Errorf("audit records = %+v", audit.Records)
	}
}

func TestChatRefusesComputation(t *testing.T) {
	router := testEnv(t, "")

	w := postJSON(t, router, "/chat", map[string]string{
		"user":  "reviewer",
		"query": "Please calculate the fair value of this swap",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp agent.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer.Status != models.StatusAbstain {
		t.Errorf("status = %q, want ABSTAIN for a computation request", resp.Answer.Status)
	}
}

func TestIngestGetAndDuplicate(t *testing.T) {
	router := testEnv(t, "")

	body := map[string]any{
		"title":    "Hedge memo",
		"standard": "IFRS 9",
		"content":  strings.Repeat("Hedge accounting requires formal designation at inception. ", 10),
	}
	w := postJSON(t, router, "/documents", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body = %s", w.Code, w.Body.String())
	}
	var created IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.Created || created.Document.ID == "" {
		t.Fatalf("response = %+v", created)
	}

	// Same content again resolves to the existing document with 200.
	body["title"] = "Hedge memo copy"
	w = postJSON(t, router, "/documents", body)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate status = %d, want 200", w.Code)
	}
	var dup IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &dup); err != nil {
		t.Fatal(err)
	}
	if dup.Created || dup.Document.ID != created.Document.ID {
		t.Errorf("duplicate response = %+v", dup)
	}

	req := httptest.NewRequest(http.MethodGet, "/documents/"+created.Document.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing document status = %d, want 404", rec.Code)
	}
}

func TestSearchDocuments(t *testing.T) {
	router := testEnv(t, "")

	w := postJSON(t, router, "/documents", map[string]any{
		"title":   "Hedge memo",
		"content": "Hedge effectiveness testing must be performed prospectively.",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/documents/search?q=hedge", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var list DocumentListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 {
		t.Errorf("search total = %d, want 1", list.Total)
	}

	req = httptest.NewRequest(http.MethodGet, "/documents/search", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", rec.Code)
	}
}

func TestArchiveAndDeleteDocument(t *testing.T) {
	router := testEnv(t, "")

	w := postJSON(t, router, "/documents", map[string]any{
		"title":   "Short-lived memo",
		"content": "Content destined for archive and deletion.",
	})
	var created IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	id := created.Document.ID

	w = postJSON(t, router, "/documents/"+id+"/archive", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/documents/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestPolicyCheckDryRun(t *testing.T) {
	router := testEnv(t, "")

	w := postJSON(t, router, "/policy/check", PolicyCheckRequest{
		Answer: models.Answer{
			Text:       "This treatment is guaranteed to be acceptable under the standard.",
			Confidence: 0.9,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var report policy.Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Compliant {
		t.Error("answer with a disallowed term and no citations reported compliant")
	}
	failed := 0
	for _, c := range report.Checks {
		if !c.Passed {
			failed++
		}
	}
	if failed < 2 {
		t.Errorf("failed checks = %d, want citation and language failures", failed)
	}
}

func TestBadRequests(t *testing.T) {
	router := testEnv(t, "")

	if w := postJSON(t, router, "/ask", map[string]string{"user": "r"}); w.Code != http.StatusBadRequest {
		t.Errorf("empty question status = %d, want 400", w.Code)
	}
	if w := postJSON(t, router, "/documents", map[string]string{"title": "t"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing content status = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON status = %d, want 400", w.Code)
	}
}
