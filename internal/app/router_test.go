package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"step2hub/internal/config"
	"step2hub/internal/model"
	"step2hub/internal/service"
	"step2hub/internal/util"
	"step2hub/pkg/database"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(&database.SQLiteBackend{Path: filepath.Join(t.TempDir(), "test.db")}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tagger, err := service.NewTaggingService(service.DefaultTaggingRules())
	require.NoError(t, err)

	a := &App{Config: &config.Config{
		Server:    config.ServerConfig{Port: "8501", Mode: "test"},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	router, err := a.buildRouter(ctx, db, tagger)
	require.NoError(t, err)
	return router
}

func do(r http.Handler, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postForm(r http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	return do(r, http.MethodPost, target, bytes.NewBufferString(form.Encode()), "application/x-www-form-urlencoded")
}

func postJSON(r http.Handler, target string, v interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(v)
	return do(r, http.MethodPost, target, bytes.NewBuffer(data), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) util.Response {
	t.Helper()
	var resp util.Response
	if data != nil {
		resp.Data = data
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func sampleForm() url.Values {
	return url.Values{
		"source":          {"NBME"},
		"exam":            {"NBME 27"},
		"raw_question":    {"Man with heart failure. What is the next best step?"},
		"choices":         {"A. x\nB. y\nC. z"},
		"your_answer":     {"B"},
		"correct_answer":  {"C"},
		"confidence":      {"2"},
		"explanation_raw": {"Loop diuretics are first-line therapy."},
		"question_type":   {model.QuestionTypeManagement},
		"topics":          {"Cardiology", "Nephrology"},
		"error_types":     {"Content gap"},
	}
}

func TestRootRedirects(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/log", w.Header().Get("Location"))
}

func TestLogFormFlow(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/log", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Question stem")
	assert.Contains(t, w.Body.String(), "DB mode: sqlite")
	assert.NotEmpty(t, w.Header().Get(util.RequestIDHeader))

	w = postForm(r, "/log/suggest", url.Values{"raw_question": {"Patient with STEMI"}, "your_answer": {"B"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<option value="Cardiology" selected>`)
	assert.Contains(t, w.Body.String(), "Patient with STEMI")

	w = postForm(r, "/log", url.Values{"your_answer": {"B"}, "correct_answer": {"C"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please paste the question stem.")

	w = postForm(r, "/log", sampleForm())
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/log?saved=1", w.Header().Get("Location"))

	w = do(r, http.MethodGet, "/log?saved=1", nil, "")
	assert.Contains(t, w.Body.String(), "Saved! (entry #1)")

	w = do(r, http.MethodGet, "/api/logs/1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var entry model.LogEntry
	decode(t, w, &entry)
	assert.Equal(t, "Cardiology, Nephrology", entry.Topics)
	assert.Equal(t, "Content gap", entry.ErrorTypes)
	assert.Equal(t, 2, entry.Confidence)
}

func TestLogFormEmptySelectionsStayEmpty(t *testing.T) {
	r := newTestRouter(t)

	form := sampleForm()
	form.Del("topics")
	form.Del("error_types")
	require.Equal(t, http.StatusSeeOther, postForm(r, "/log", form).Code)

	var entry model.LogEntry
	decode(t, do(r, http.MethodGet, "/api/logs/1", nil, ""), &entry)
	assert.Equal(t, "", entry.Topics)
	assert.Equal(t, "", entry.ErrorTypes)
}

func TestAPICreateAndList(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(r, "/api/logs", map[string]interface{}{"yourAnswer": "B"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Message, "Please paste the question stem.")

	w = postJSON(r, "/api/logs", map[string]interface{}{
		"source":        "UWorld",
		"rawQuestion":   "Child with bronchiolitis. Next best step?",
		"yourAnswer":    "A",
		"correctAnswer": "a",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created model.LogEntry
	decode(t, w, &created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, service.DefaultConfidence, created.Confidence)
	assert.True(t, model.HasTag(created.Topics, "Pediatrics"))

	w = postJSON(r, "/api/logs", map[string]interface{}{"source": "NBME", "rawQuestion": "stem", "yourAnswer": "A", "correctAnswer": "B"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodGet, "/api/logs?source=UWorld", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		List  []model.LogEntry `json:"list"`
		Total int              `json:"total"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "UWorld", list.List[0].Source)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/logs?from=yesterday", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/logs/42", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/logs/abc", nil, "").Code)
}

func TestAPISuggest(t *testing.T) {
	r := newTestRouter(t)

	w := postJSON(r, "/api/suggest", model.SuggestInput{RawQuestion: "What is the most likely diagnosis? Murmur noted."})
	require.Equal(t, http.StatusOK, w.Code)
	var s model.Suggestion
	decode(t, w, &s)
	assert.Equal(t, model.QuestionTypeDiagnosis, s.QuestionType)
	assert.Equal(t, []string{"Cardiology"}, s.Topics)
}

func TestDashboard(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/dashboard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No logs yet.")

	require.Equal(t, http.StatusSeeOther, postForm(r, "/log", sampleForm()).Code)
	form := sampleForm()
	form.Set("your_answer", "c")
	require.Equal(t, http.StatusSeeOther, postForm(r, "/log", form).Code)

	w = do(r, http.MethodGet, "/dashboard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "50.0%")
	assert.Contains(t, w.Body.String(), "Cardiology")

	w = do(r, http.MethodGet, "/api/dashboard", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, 0.5, stats.Accuracy)

	w = do(r, http.MethodGet, "/api/aggregate?group_by=source&metric=count", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var agg struct {
		Result map[string]float64 `json:"result"`
	}
	decode(t, w, &agg)
	assert.Equal(t, map[string]float64{"NBME": 2}, agg.Result)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/aggregate?group_by=notes", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/aggregate?metric=sum", nil, "").Code)
}

func TestReviewAndExport(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusSeeOther, postForm(r, "/log", sampleForm()).Code)
	form := sampleForm()
	form.Set("source", "UWorld")
	form.Set("topics", "Psych")
	require.Equal(t, http.StatusSeeOther, postForm(r, "/log", form).Code)

	w := do(r, http.MethodGet, "/review?topic=Cardiology", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "1 matching entries")
	assert.Contains(t, body, `href="/review/export.csv?topic=Cardiology"`)
	assert.Contains(t, body, "Clear filters")

	w = do(r, http.MethodGet, "/review?topic=Cardiology&source=UWorld", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No entries match these filters.")

	w = do(r, http.MethodGet, "/review?from=not-a-date", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/review/export.csv?source=UWorld", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), util.CSVFileName)
	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.Columns, records[0])
	assert.Equal(t, "UWorld", records[1][2])

	w = do(r, http.MethodGet, "/review/export.xlsx", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), util.XLSXFileName)
	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	rows, err := f.GetRows("logs")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	f.Close()

	w = do(r, http.MethodGet, "/review/2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Entry #2")
	assert.Contains(t, w.Body.String(), "Loop diuretics are first-line therapy.")
	assert.Contains(t, w.Body.String(), `href="/review?topic=Psych"`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/review/99", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/review/abc", nil, "").Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]interface{}
	decode(t, w, &data)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "sqlite", data["backend"])

	w = do(r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
