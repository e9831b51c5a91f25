package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/DIKSHA-NCTE/sl-sunbird-service/common/errors"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/common/middleware"
	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	user     models.UserDetails
	contents []models.ContentItem
	fileName string
	name     string
	body     string
	err      error
}

func (f *fakePlatform) GenerateQrCodes(ctx context.Context, contents []models.ContentItem, user models.UserDetails) ([]models.QrCodeResult, error) {
	f.user, f.contents = user, contents
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.QrCodeResult, 0, len(contents))
	for _, c := range contents {
		out = append(out, models.QrCodeResult{Identifier: c.Identifier, Name: c.Name, DialCode: "Q" + c.Identifier, Status: models.StatusSuccess})
	}
	return out, nil
}

func (f *fakePlatform) UploadScormContent(ctx context.Context, file io.Reader, fileName, name string, user models.UserDetails) (*models.ScormUploadResult, error) {
	f.user, f.fileName, f.name = user, fileName, name
	if file == nil {
		return nil, apperrors.New(http.StatusBadRequest, "Content file is required", nil)
	}
	b, _ := io.ReadAll(file)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &models.ScormUploadResult{ContentID: "do_1", ContentURL: "https://cdn/do_1.zip"}, nil
}

func newPlatformRouter(platform *fakePlatform) *gin.Engine {
	h := NewPlatformController(platform, NewRequestValidator(0))

	r := gin.New()
	g := r.Group("/bodh/platform", middleware.UserDetails())
	g.POST("/generate", h.Generate)
	g.POST("/uploadScromContent", h.UploadScormContent)
	return r
}

func userToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub}).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func TestPlatformGenerate(t *testing.T) {
	platform := &fakePlatform{}
	r := newPlatformRouter(platform)
	token := userToken(t, "f:federation:user-7")

	req := httptest.NewRequest(http.MethodPost, "/bodh/platform/generate",
		strings.NewReader(`{"contentData":[{"identifier":"do_1","name":"Maths"},{"identifier":"do_2","name":"Science"}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserTokenHeader, token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"status": 200,
		"message": "Qr codes generated successfully",
		"result": [
			{"identifier": "do_1", "name": "Maths", "dialcode": "Qdo_1", "status": "SUCCESS"},
			{"identifier": "do_2", "name": "Science", "dialcode": "Qdo_2", "status": "SUCCESS"}
		]
	}`, w.Body.String())
	assert.Equal(t, models.UserDetails{UserID: "user-7", UserToken: token}, platform.user)
}

func TestPlatformGenerate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		token      bool
		body       string
		wantStatus int
		wantBody   string
	}{
		{"no token", false, `{"contentData":[{"identifier":"do_1"}]}`, http.StatusUnauthorized, `{"status":401,"message":"Unauthorized"}`},
		{"missing content", true, `{}`, http.StatusBadRequest, `{"status":400,"message":"ContentData is required"}`},
		{"empty content", true, `{"contentData":[]}`, http.StatusBadRequest, `{"status":400,"message":"ContentData must contain at least 1 item(s)"}`},
		{"missing identifier", true, `{"contentData":[{"name":"x"}]}`, http.StatusBadRequest, `{"status":400,"message":"Identifier is required"}`},
		{"bad json", true, `[`, http.StatusBadRequest, `{"status":400,"message":"Invalid request body"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := &fakePlatform{}
			r := newPlatformRouter(platform)

			req := httptest.NewRequest(http.MethodPost, "/bodh/platform/generate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.token {
				req.Header.Set(middleware.UserTokenHeader, userToken(t, "user-1"))
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Nil(t, platform.contents)
		})
	}
}

func TestPlatformUploadScorm(t *testing.T) {
	platform := &fakePlatform{}
	r := newPlatformRouter(platform)

	body, ct := multipartBody(t, "contentData", "lesson.zip", "application/zip", "PK-archive")
	req := httptest.NewRequest(http.MethodPost, "/bodh/platform/uploadScromContent?name=Lesson+One", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set(middleware.UserTokenHeader, userToken(t, "user-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"status": 200,
		"message": "Successfully uploaded content",
		"result": {"contentId": "do_1", "contentUrl": "https://cdn/do_1.zip"}
	}`, w.Body.String())
	assert.Equal(t, "lesson.zip", platform.fileName)
	assert.Equal(t, "Lesson One", platform.name)
	assert.Equal(t, "PK-archive", platform.body)
	assert.Equal(t, "user-1", platform.user.UserID)
}

func TestPlatformUploadScorm_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		platform := &fakePlatform{}
		r := newPlatformRouter(platform)

		body, ct := multipartBody(t, "other", "lesson.zip", "application/zip", "PK")
		req := httptest.NewRequest(http.MethodPost, "/bodh/platform/uploadScromContent", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserTokenHeader, userToken(t, "user-1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":400,"message":"Content file is required"}`, w.Body.String())
	})

	t.Run("platform down", func(t *testing.T) {
		platform := &fakePlatform{err: apperrors.New(http.StatusBadGateway, "Sunbird service is down", nil)}
		r := newPlatformRouter(platform)

		body, ct := multipartBody(t, "contentData", "lesson.zip", "application/zip", "PK")
		req := httptest.NewRequest(http.MethodPost, "/bodh/platform/uploadScromContent", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.UserTokenHeader, userToken(t, "user-1"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.JSONEq(t, `{"status":502,"message":"Sunbird service is down"}`, w.Body.String())
	})
}
