package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/middleware"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/controllers"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type notReadyDictionary struct{}

func (notReadyDictionary) IndexReady(ctx context.Context) bool { return false }

func (notReadyDictionary) ApplyWord(ctx context.Context, word string, action models.Action) bool {
	return false
}

func newTestRouter(limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := controllers.NewRequestValidator(0)
	keywords := services.NewKeywordService(notReadyDictionary{}, services.KeywordServiceOptions{}, zap.NewNop())
	platform := services.NewPlatformService(nil, "org", zap.NewNop())

	r := gin.New()
	RegisterRoutes(r, Controllers{
		Keywords: controllers.NewKeywordsController(keywords, validator),
		Platform: controllers.NewPlatformController(platform, validator),
		Files:    controllers.NewFilesController(nil, validator),
	}, limiter)
	return r
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
}

func TestRoutesMounted(t *testing.T) {
	r := newTestRouter(nil)

	tests := []struct {
		method, path string
		wantStatus   int
	}{
		{http.MethodPost, BasePath + "/dictionary/keywords/update", http.StatusBadRequest},
		{http.MethodPost, BasePath + "/bodh/platform/generate", http.StatusUnauthorized},
		{http.MethodPost, BasePath + "/bodh/platform/uploadScromContent", http.StatusUnauthorized},
		{http.MethodGet, BasePath + "/files/downloadableUrl", http.StatusBadRequest},
		{http.MethodGet, BasePath + "/files/signedUrl", http.StatusBadRequest},
		{http.MethodGet, "/dictionary/keywords/update", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUploadRateLimited(t *testing.T) {
	r := newTestRouter(middleware.NewRateLimiter(0, 1, time.Minute))

	send := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, KeywordsUploadPath, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusBadRequest, send())
	assert.Equal(t, http.StatusTooManyRequests, send())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, BasePath+"/dictionary/keywords/update", strings.NewReader(`{"keywords":["a"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "update is not rate limited")
}
