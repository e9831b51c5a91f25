package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSunbirdTestClient(t *testing.T, handler http.HandlerFunc) *SunbirdClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var fetches int32
	kc := newKeycloakServer(t, 3600, &fetches)

	return NewSunbirdClient(
		SunbirdOptions{BaseURL: srv.URL + "/", Authorization: "Bearer api-key", ChannelID: "org-1"},
		NewPublisherToken(testKeycloakOptions(kc.URL), zap.NewNop()),
		zap.NewNop(),
	)
}

func writeOK(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"responseCode":"OK","params":{"status":"successful"},"result":%s}`, result)
}

func TestSunbirdClient_GenerateCodesSendsPlatformHeaders(t *testing.T) {
	var body map[string]interface{}
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathGenerateDialCode, r.URL.Path)
		assert.Equal(t, "Bearer api-key", r.Header.Get("authorization"))
		assert.Equal(t, "user-token", r.Header.Get("x-authenticated-user-token"))
		assert.Equal(t, "org-1", r.Header.Get("x-channel-id"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeOK(w, `{"dialcodes":["A1B2C3"],"count":1}`)
	})

	codes, err := client.GenerateCodes(context.Background(), "user-token", 1, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1B2C3"}, codes)

	dialcodes := body["request"].(map[string]interface{})["dialcodes"].(map[string]interface{})
	assert.Equal(t, float64(1), dialcodes["count"])
	assert.Equal(t, "org-1", dialcodes["publisher"])
}

func TestSunbirdClient_CodeStatus(t *testing.T) {
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, `{"dialcodes":[{"identifier":"OTHER","status":"Draft"},{"identifier":"A1B2C3","status":"Live"}]}`)
	})

	status, err := client.CodeStatus(context.Background(), "user-token", "A1B2C3")
	require.NoError(t, err)
	assert.Equal(t, "Live", status)

	_, err = client.CodeStatus(context.Background(), "user-token", "MISSING")
	var sbErr *SunbirdError
	assert.True(t, errors.As(err, &sbErr))
}

func TestSunbirdClient_NonOKResponse(t *testing.T) {
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"responseCode":"CLIENT_ERROR","params":{"errmsg":"invalid dialcode"}}`))
	})

	err := client.LinkContent(context.Background(), "user-token", "do_1", "A1B2C3")

	var sbErr *SunbirdError
	require.True(t, errors.As(err, &sbErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, sbErr.StatusCode)
	assert.Equal(t, "CLIENT_ERROR", sbErr.ResponseCode)
	assert.Equal(t, "invalid dialcode", sbErr.Message)
}

func TestSunbirdClient_GetUserProfileServiceError(t *testing.T) {
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, pathUserRead+"/user-1", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := client.GetUserProfile(context.Background(), "user-token", "user-1")

	var sbErr *SunbirdError
	require.True(t, errors.As(err, &sbErr))
	assert.Equal(t, SunbirdServiceErrorCode, sbErr.ResponseCode)
	assert.Equal(t, "upstream exploded", sbErr.Message)
}

func TestSunbirdClient_GetUserProfile(t *testing.T) {
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(w, `{"response":{"userId":"user-1","firstName":"Asha","lastName":"Rao"}}`)
	})

	profile, err := client.GetUserProfile(context.Background(), "user-token", "user-1")
	require.NoError(t, err)
	assert.Equal(t, &models.UserProfile{ID: "user-1", FirstName: "Asha", LastName: "Rao"}, profile)
}

func TestSunbirdClient_TransportFailureIsServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := NewSunbirdClient(SunbirdOptions{BaseURL: srv.URL}, nil, zap.NewNop())

	err := client.IndexSync(context.Background(), "user-token", "content", []string{"do_1"})
	assert.ErrorIs(t, err, ErrSunbirdServiceDown)
}

func TestSunbirdClient_PublishContentRetriesOnceOnUnauthorized(t *testing.T) {
	var calls int32
	var tokens []string
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pathPublishContent+"/do_1", r.URL.Path)
		tokens = append(tokens, r.Header.Get("x-authenticated-user-token"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"responseCode":"UNAUTHORIZED"}`))
			return
		}
		writeOK(w, `{"node_id":"do_1"}`)
	})

	require.NoError(t, client.PublishContent(context.Background(), "do_1", "user-1"))
	assert.Equal(t, []string{"token-1", "token-2"}, tokens)
}

func TestSunbirdClient_PublishContentGivesUpAfterSecondUnauthorized(t *testing.T) {
	var calls int32
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.PublishContent(context.Background(), "do_1", "user-1")

	var sbErr *SunbirdError
	require.True(t, errors.As(err, &sbErr))
	assert.Equal(t, http.StatusUnauthorized, sbErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSunbirdClient_CreateAndUploadContent(t *testing.T) {
	client := newSunbirdTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == pathCreateContent:
			var body struct {
				Request struct {
					Content models.ContentMetadata `json:"content"`
				} `json:"request"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "application/vnd.ekstep.html-archive", body.Request.Content.MimeType)
			writeOK(w, `{"identifier":"do_9","node_id":"do_9"}`)

		case strings.HasPrefix(r.URL.Path, pathUploadContent+"/do_9"):
			file, header, err := r.FormFile("fileName")
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "course.zip", header.Filename)
			assert.Equal(t, "application/zip", header.Header.Get("Content-Type"))
			assert.Equal(t, "zip-bytes", string(data))
			writeOK(w, `{"content_url":"https://cdn.example.com/do_9.zip"}`)

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := client.CreateContent(context.Background(), "user-token", models.ContentMetadata{
		Name:     "Course",
		MimeType: "application/vnd.ekstep.html-archive",
	})
	require.NoError(t, err)
	assert.Equal(t, "do_9", id)

	url, err := client.UploadContent(context.Background(), "user-token", id, "course.zip", "application/zip", strings.NewReader("zip-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/do_9.zip", url)
}
