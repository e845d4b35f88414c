package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ndvi-gateway/internal/identity"
	"github.com/noah-isme/ndvi-gateway/internal/service"
	"github.com/noah-isme/ndvi-gateway/pkg/logger"
)

func newIdentityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Identity(IdentityConfig{CookieName: "ndvi_user_id", TTL: time.Hour}, nil))
	router.GET("/whoami", func(c *gin.Context) {
		id, _ := identity.UserIDFromContext(c.Request.Context())
		c.String(http.StatusOK, id+"|"+c.GetString(logger.UserIDKey))
	})
	router.DELETE("/whoami", func(c *gin.Context) {
		_ = IdentityProvider(c).ClearUserData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestIdentityIssuesCookieOnce(t *testing.T) {
	router := newIdentityRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	issued := cookies[0]
	require.Equal(t, "ndvi_user_id", issued.Name)
	require.True(t, issued.HttpOnly)
	require.Equal(t, issued.Value+"|"+issued.Value, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "ndvi_user_id", Value: issued.Value})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Empty(t, w.Result().Cookies())
	require.Equal(t, issued.Value+"|"+issued.Value, w.Body.String())
}

func TestIdentityHeaderPinsUser(t *testing.T) {
	router := newIdentityRouter()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(UserIDHeader, "user_cli")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, "user_cli|user_cli", w.Body.String())
	require.Empty(t, w.Result().Cookies())
}

func TestIdentityHeaderRejectsInvalidUser(t *testing.T) {
	router := newIdentityRouter()
	for _, pinned := range []string{"user a", "user;admin", `user"x`, "a,b"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(UserIDHeader, pinned)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusBadRequest, w.Code, pinned)
		require.Contains(t, w.Body.String(), "VALIDATION_ERROR")
		require.Empty(t, w.Result().Cookies())
	}
}

func TestIdentityClearExpiresCookie(t *testing.T) {
	router := newIdentityRouter()
	req := httptest.NewRequest(http.MethodDelete, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "ndvi_user_id", Value: "user_old"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "", cookies[0].Value)
	require.True(t, cookies[0].MaxAge < 0)
}

func TestMetricsMiddlewareRecords(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]bool{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] = true
				}
			}
		}
	}
	require.True(t, paths["/ping"])
	require.True(t, paths["unmatched"])
}
