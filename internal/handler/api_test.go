package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankurclub/clever-video-summarizer/internal/auth"
	"github.com/ankurclub/clever-video-summarizer/internal/domain"
	"github.com/ankurclub/clever-video-summarizer/internal/engine/mock"
	"github.com/ankurclub/clever-video-summarizer/internal/language"
	"github.com/ankurclub/clever-video-summarizer/internal/ratewindow"
	"github.com/ankurclub/clever-video-summarizer/internal/service"
	"github.com/ankurclub/clever-video-summarizer/internal/storage"
	"github.com/ankurclub/clever-video-summarizer/internal/store"
	"github.com/ankurclub/clever-video-summarizer/internal/summary"
	"github.com/ankurclub/clever-video-summarizer/internal/translate"
)

type englishDetector struct{}

func (englishDetector) Detect(text string) (string, bool) { return "eng", true }

type testAPI struct {
	handler http.Handler
	engine  *mock.Engine
}

// newTestAPI wires every handler over in-memory stores, a mock engine and
// local export storage. Identity comes from the X-Test-User and X-Test-Plan
// headers in place of the identity middleware.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := discardLogger()
	mem := store.NewMemoryStore()

	objects, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, logger)
	require.NoError(t, err)

	quota := service.NewQuotaService(mem, time.UTC, logger)
	policy := service.NewPolicyService(quota, logger)
	results := service.NewResultService(mem, objects, logger)

	monitor, err := ratewindow.NewMonitor(ratewindow.NewMemoryStore(), ratewindow.DefaultConfig(), logger)
	require.NoError(t, err)

	eng := mock.New(logger)
	classifier := language.NewClassifier(englishDetector{}, logger)
	proc := service.NewProcessor(service.ProcessorDeps{
		Policy:     policy,
		Quota:      quota,
		Results:    results,
		Rate:       monitor,
		Engine:     eng,
		Translator: translate.NewTranslator(eng, translate.DefaultOptions(), logger),
		Summarizer: summary.New(eng, logger),
		Classifier: classifier,
	}, service.ProcessingConfig{CheckCapacity: true}, logger)

	passthrough := func(next http.Handler) http.Handler { return next }

	mux := http.NewServeMux()
	NewHealthHandler(logger).RegisterRoutes(mux)
	NewCatalogHandler(classifier, logger).RegisterRoutes(mux)
	NewUsageHandler(quota, policy, logger).RegisterRoutes(mux, passthrough)
	NewProcessingHandler(proc, logger).RegisterRoutes(mux, passthrough)
	NewArtifactHandler(results, logger).RegisterRoutes(mux)

	withIdentity := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("X-Test-User"); key != "" {
			id := domain.Identity{Key: key, Tier: domain.ParsePlanTier(r.Header.Get("X-Test-Plan"))}
			r = r.WithContext(auth.SetIdentity(r.Context(), id))
		}
		mux.ServeHTTP(w, r)
	})

	return &testAPI{handler: withIdentity, engine: eng}
}

func (a *testAPI) do(t *testing.T, method, path, user string, tier domain.PlanTier, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Plan", string(tier))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) upload(t *testing.T, user string, tier domain.PlanTier, kind string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if content != nil {
		fw, err := mw.CreateFormFile("file", "talk.mp3")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("file_kind", kind))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/transcriptions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Test-User", user)
	req.Header.Set("X-Test-Plan", string(tier))
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// Catalog
// =============================================================================

func TestAPI_Health(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, "GET", "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_Plans(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, "GET", "/api/plans", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Plans []PlanInfo `json:"plans"`
	}](t, rec)
	require.Len(t, body.Plans, 3)
	assert.Equal(t, domain.PlanFree, body.Plans[0].Tier)
	assert.Equal(t, "10 MB", body.Plans[0].MaxAudio)
	assert.Equal(t, domain.Unlimited, body.Plans[2].Limits.MonthlyUploadLimit)
}

func TestAPI_Languages(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "GET", "/api/languages", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Languages []language.Option `json:"languages"`
	}](t, rec)
	assert.Len(t, body.Languages, 13)

	rec = api.do(t, "POST", "/api/languages/detect", "", "", map[string]string{"text": "Hello there, how are you today?"})
	require.Equal(t, http.StatusOK, rec.Code)
	detected := decode[DetectedLanguage](t, rec)
	assert.Equal(t, "en", detected.Code)
	assert.Equal(t, "English", detected.Label)
}

func TestAPI_ConvertSubtitles(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/subtitles/convert", "", "", map[string]string{"vtt": mock.SampleVTT})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]string](t, rec)
	assert.True(t, strings.HasPrefix(body["srt"], "1\n00:00:00,000 --> 00:00:02,500\n"), body["srt"])
	assert.Contains(t, body["text"], "Welcome to the demo video.")

	rec = api.do(t, "POST", "/api/subtitles/convert", "", "", map[string]string{"vtt": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Identity and input errors
// =============================================================================

func TestAPI_RequiresIdentity(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/usage", "/api/artifacts"} {
		rec := api.do(t, "GET", path, "", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAPI_MalformedJSON(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest("POST", "/api/translations", strings.NewReader("{not json"))
	req.Header.Set("X-Test-User", "user_1")
	req.Header.Set("X-Test-Plan", "pro")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.EINVALID, decode[JSONError](t, rec).Error.Code)
}

// =============================================================================
// Gates and usage
// =============================================================================

func TestAPI_AttemptUpload(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/uploads/attempt", "user_1", domain.PlanFree,
		map[string]any{"file_size": 60 * 1024 * 1024, "file_kind": "video"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[JSONError](t, rec)
	assert.Equal(t, domain.LimitVideo, body.Error.Limit)
	assert.Equal(t, "Upgrade to Pro to upload video files up to 200 MB.", body.Error.Upgrade)

	rec = api.do(t, "POST", "/api/uploads/attempt", "user_1", domain.PlanPro,
		map[string]any{"file_size": 60 * 1024 * 1024, "file_kind": "video"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "POST", "/api/uploads/attempt", "user_1", domain.PlanPro,
		map[string]any{"file_size": 1, "file_kind": "image"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[JSONError](t, rec).Error.Fields, "file_kind")
}

func TestAPI_AttemptProcess(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/process/attempt", "user_1", domain.PlanFree, map[string]string{"operation": "summary"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, "POST", "/api/process/attempt", "user_1", domain.PlanFree, map[string]string{"operation": "transcription"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "POST", "/api/process/attempt", "user_1", domain.PlanFree, map[string]string{"operation": "dance"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_TranscribeRecordsUsageAndEnforcesDailyLimit(t *testing.T) {
	api := newTestAPI(t)

	rec := api.upload(t, "user_1", domain.PlanFree, "audio", []byte("fake audio bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.TranscriptionResult](t, rec)
	assert.Contains(t, result.Text, "talk.mp3")
	assert.Equal(t, "en", result.Language)
	assert.Nil(t, result.Artifact, "free tier keeps no history")

	rec = api.do(t, "GET", "/api/usage", "user_1", domain.PlanFree, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decode[domain.UsageSnapshot](t, rec)
	assert.Equal(t, 1, usage.Counters.MonthlyCount)
	assert.Equal(t, 1, usage.Counters.DailyCount)
	assert.Equal(t, 0, usage.DailyRemaining)
	assert.Equal(t, 4, usage.MonthlyRemaining)

	rec = api.upload(t, "user_1", domain.PlanFree, "audio", []byte("more audio"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, domain.LimitDaily, decode[JSONError](t, rec).Error.Limit)
	assert.Equal(t, 1, api.engine.TranscribeCalls)
}

func TestAPI_TranscribeRejectsOversizedBodyBeforeParsing(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest("POST", "/api/transcriptions", strings.NewReader("--x--"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("X-Test-User", "user_1")
	req.Header.Set("X-Test-Plan", string(domain.PlanFree))
	req.ContentLength = 60 << 20
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	body := decode[JSONError](t, rec)
	assert.Equal(t, domain.LimitVideo, body.Error.Limit)
	assert.Contains(t, body.Error.Message, "50 MB limit on the Free plan")
	assert.Zero(t, api.engine.TranscribeCalls)

	rec = api.do(t, "GET", "/api/usage", "user_1", domain.PlanFree, nil)
	assert.Zero(t, decode[domain.UsageSnapshot](t, rec).Counters.DailyCount)
}

func TestAPI_TranscribeRequiresFile(t *testing.T) {
	api := newTestAPI(t)
	rec := api.upload(t, "user_1", domain.PlanFree, "audio", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, api.engine.TranscribeCalls)
}

func TestAPI_ResetUsage(t *testing.T) {
	api := newTestAPI(t)

	rec := api.upload(t, "user_1", domain.PlanFree, "audio", []byte("audio"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, "POST", "/api/usage/reset", "", "", map[string]string{"identity": "user_1", "period": "daily"})
	require.Equal(t, http.StatusOK, rec.Code)

	usage := decode[domain.UsageSnapshot](t, api.do(t, "GET", "/api/usage", "user_1", domain.PlanFree, nil))
	assert.Equal(t, 0, usage.Counters.DailyCount)
	assert.Equal(t, 1, usage.Counters.MonthlyCount)

	rec = api.do(t, "POST", "/api/usage/reset", "", "", map[string]string{"identity": "user_1", "period": "yearly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RateCheckAndCapacity(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/rate/check", "user_1", domain.PlanFree, map[string]string{"kind": "upload"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.RateStatus](t, rec).Allowed)

	rec = api.do(t, "GET", "/api/capacity", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":true`)
}

// =============================================================================
// Translation, summary, subtitles
// =============================================================================

func TestAPI_TranslateEntitlement(t *testing.T) {
	api := newTestAPI(t)
	req := map[string]string{"text": "Good morning everyone.", "target_lang": "es"}

	rec := api.do(t, "POST", "/api/translations", "user_1", domain.PlanFree, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, "POST", "/api/translations", "user_2", domain.PlanPro, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Good morning everyone.")
}

func TestAPI_Summarize(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/summaries", "user_2", domain.PlanPro, map[string]string{"text": "A long talk about plans and pricing."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "The speaker introduces the product")

	rec = api.do(t, "POST", "/api/summaries", "user_2", domain.PlanPro, map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Subtitles(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "POST", "/api/subtitles", "user_3", domain.PlanPro, map[string]string{"video_url": "https://example.com/watch?v=1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.SubtitlesResult](t, rec)
	assert.Contains(t, result.SRT, "00:00:02,500 --> 00:00:05,000")
	assert.Equal(t, 1, result.Usage.DailyCount)
}

// =============================================================================
// Artifacts
// =============================================================================

func TestAPI_ArtifactLifecycle(t *testing.T) {
	api := newTestAPI(t)
	const owner = "biz_1"

	rec := api.upload(t, owner, domain.PlanBusiness, "audio", []byte("audio"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[service.TranscriptionResult](t, rec)
	require.NotNil(t, created.Artifact)
	artifactID := created.Artifact.ID

	rec = api.do(t, "GET", "/api/artifacts", owner, domain.PlanBusiness, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Artifacts []ArtifactSummary `json:"artifacts"`
	}](t, rec)
	require.Len(t, list.Artifacts, 1)
	assert.Equal(t, artifactID, list.Artifacts[0].ID)
	assert.NotContains(t, rec.Body.String(), "mock transcription", "list omits content")

	rec = api.do(t, "GET", "/api/artifacts/"+artifactID, owner, domain.PlanBusiness, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mock transcription")

	rec = api.do(t, "GET", "/api/artifacts/"+artifactID, "biz_2", domain.PlanBusiness, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, "POST", "/api/artifacts/"+artifactID+"/export", owner, domain.PlanBusiness, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	export := decode[service.ExportResult](t, rec)
	assert.True(t, strings.HasPrefix(export.URL, "http://localhost:8080/files/exports/"), export.URL)
	assert.True(t, strings.HasSuffix(export.Key, ".txt"), export.Key)

	rec = api.do(t, "POST", "/api/artifacts/"+artifactID+"/export?format=pdf", owner, domain.PlanBusiness, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(decode[service.ExportResult](t, rec).Key, ".pdf"))

	rec = api.do(t, "POST", "/api/artifacts/"+artifactID+"/export?format=docx", owner, domain.PlanBusiness, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, "DELETE", "/api/artifacts/"+artifactID, "biz_2", domain.PlanBusiness, nil)
	assert.JSONEq(t, `{"deleted":false}`, rec.Body.String())

	rec = api.do(t, "DELETE", "/api/artifacts/"+artifactID, owner, domain.PlanBusiness, nil)
	assert.JSONEq(t, `{"deleted":true}`, rec.Body.String())

	rec = api.do(t, "DELETE", "/api/artifacts/"+artifactID, owner, domain.PlanBusiness, nil)
	assert.JSONEq(t, `{"deleted":false}`, rec.Body.String())
}

func TestAPI_ArtifactsWithoutHistory(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, "GET", "/api/artifacts", "user_2", domain.PlanPro, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"artifacts":[]}`, rec.Body.String())
}
