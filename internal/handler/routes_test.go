package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/client"
	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/middleware"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/internal/testutil"
	"github.com/noah-isme/ndvi-gateway/pkg/config"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
	"github.com/noah-isme/ndvi-gateway/pkg/export"
	"github.com/noah-isme/ndvi-gateway/pkg/storage"
)

const apiPrefix = "/api/v1"

func newTestRouter(t *testing.T) (*gin.Engine, *testutil.FakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := testutil.NewFakeBackend()
	t.Cleanup(backend.Close)
	metrics := service.NewMetricsService()
	backendClient := client.New(client.Options{
		BaseURL:        backend.URL(),
		RequestTimeout: 2 * time.Second,
		SubmitTimeout:  2 * time.Second,
		Observer:       metrics,
	})
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ids := identity.NewProvider(nil, nil)
	gallery := service.NewGalleryService(backendClient, ids, nil, metrics, service.GalleryConfig{}, nil)
	exports := service.NewExportService(gallery, store, service.ExportConfig{}, nil, export.NewCSVExporter(), export.NewPDFExporter())
	analyses := service.NewAnalysisService(backendClient, ids, nil, nil, metrics, service.AnalysisConfig{}, nil)
	results := service.NewResultService(backendClient, ids, store, metrics, config.PreviewConfig{MaxAttempts: 2, Interval: time.Millisecond}, nil)

	r := gin.New()
	r.Use(middleware.Metrics(metrics))
	RegisterRoutes(r, apiPrefix, middleware.Identity(middleware.IdentityConfig{CookieName: "ndvi_uid"}, nil), Handlers{
		Health:   NewHealthHandler(backendClient, metrics),
		Identity: NewIdentityHandler(),
		Analyses: NewAnalysisHandler(analyses),
		Gallery:  NewGalleryHandler(gallery, exports),
		Results:  NewResultHandler(results),
	})
	return r, backend
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesSubmitThenGallery(t *testing.T) {
	r, backend := newTestRouter(t)

	req := multipartRequest(t, apiPrefix+"/analyses", map[string]string{"query": "Analyze Nairobi from 2019 to 2023"},
		"key.json", "application/json", testutil.CredentialsJSON(300))
	req.Header.Set(middleware.UserIDHeader, "user_routes")
	w := serve(r, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result service.SubmitResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &result))
	require.NotNil(t, result.Session)
	assert.Equal(t, "user_routes", result.UserID)
	subs := backend.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "user_routes", subs[0].UserID)

	req = httptest.NewRequest(http.MethodGet, apiPrefix+"/gallery/cards", nil)
	req.Header.Set(middleware.UserIDHeader, "user_routes")
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	var cards []models.AnalysisCard
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, result.Session.SessionID, cards[0].SessionID)

	req = httptest.NewRequest(http.MethodGet, apiPrefix+"/results/"+result.Session.SessionID+"/download", nil)
	w = serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "_bundle.zip")

	req = httptest.NewRequest(http.MethodDelete, apiPrefix+"/results/"+result.Session.SessionID, nil)
	req.Header.Set(middleware.UserIDHeader, "someone_else")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.CodeForbidden, decodeEnvelope(t, w).Error.Code)

	req = httptest.NewRequest(http.MethodDelete, apiPrefix+"/results/"+result.Session.SessionID, nil)
	req.Header.Set(middleware.UserIDHeader, "user_routes")
	w = serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRoutesIdentityCookieRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w := serve(r, httptest.NewRequest(http.MethodGet, apiPrefix+"/identity", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	var first struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &first))

	req := httptest.NewRequest(http.MethodGet, apiPrefix+"/identity", nil)
	req.AddCookie(cookies[0])
	w = serve(r, req)
	var second struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &second))
	assert.Equal(t, first.UserID, second.UserID)
}

func TestRoutesProbesAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ndvi_backend_requests_total")
}

func TestRoutesUnknownSessionMetadata(t *testing.T) {
	r, _ := newTestRouter(t)
	w := serve(r, httptest.NewRequest(http.MethodGet, apiPrefix+"/results/missing/metadata", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
