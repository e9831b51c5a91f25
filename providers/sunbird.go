package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/DIKSHA-NCTE/sl-sunbird-service/models"

	"go.uber.org/zap"
)

// ErrSunbirdServiceDown is returned when the platform cannot be reached at all.
var ErrSunbirdServiceDown = errors.New("sunbird service is down")

// SunbirdServiceErrorCode is reported for non-OK platform answers that carry no code of their own.
const SunbirdServiceErrorCode = "SUNBIRD_SERVICE_ERROR"

const (
	pathGenerateDialCode = "/api/dialcode/v1/generate"
	pathPublishDialCode  = "/api/dialcode/v1/publish"
	pathSearchDialCode   = "/api/dialcode/v1/search"
	pathLinkContent      = "/api/content/v1/dialcode/link"
	pathPublishContent   = "/api/content/v1/publish"
	pathUserRead         = "/api/user/v1/read"
	pathIndexSync        = "/api/data/v1/index/sync"
	pathCreateContent    = "/api/content/v1/create"
	pathUploadContent    = "/api/content/v1/upload"
)

// SunbirdError is a platform answer that was received but not OK.
type SunbirdError struct {
	StatusCode   int
	ResponseCode string
	Message      string
}

func (e *SunbirdError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sunbird %s (status %d): %s", e.ResponseCode, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sunbird %s (status %d)", e.ResponseCode, e.StatusCode)
}

// SunbirdProvider is the content publishing platform as seen by the bodh endpoints.
type SunbirdProvider interface {
	GenerateCodes(ctx context.Context, userToken string, count int, publisher string) ([]string, error)
	PublishCode(ctx context.Context, userToken, code string) error
	CodeStatus(ctx context.Context, userToken, code string) (string, error)
	LinkContent(ctx context.Context, userToken, contentID, code string) error
	PublishContent(ctx context.Context, contentID, lastPublishedBy string) error
	GetUserProfile(ctx context.Context, userToken, userID string) (*models.UserProfile, error)
	IndexSync(ctx context.Context, userToken, objectType string, ids []string) error
	CreateContent(ctx context.Context, userToken string, content models.ContentMetadata) (string, error)
	UploadContent(ctx context.Context, userToken, contentID, fileName, mimeType string, file io.Reader) (string, error)
}

// SunbirdOptions configures the platform client.
type SunbirdOptions struct {
	BaseURL       string
	Authorization string
	ChannelID     string
}

// SunbirdClient implements SunbirdProvider over the platform's REST API.
type SunbirdClient struct {
	opts       SunbirdOptions
	publisher  *PublisherToken
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSunbirdClient creates a client. publisher supplies the credential used to publish content.
func NewSunbirdClient(opts SunbirdOptions, publisher *PublisherToken, logger *zap.Logger) *SunbirdClient {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &SunbirdClient{
		opts:      opts,
		publisher: publisher,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// ---- platform envelopes ----

type sunbirdRequest struct {
	Request interface{} `json:"request"`
}

type sunbirdResponse struct {
	ResponseCode string `json:"responseCode"`
	Params       struct {
		Status string `json:"status"`
		Err    string `json:"err"`
		ErrMsg string `json:"errmsg"`
	} `json:"params"`
	Result json.RawMessage `json:"result"`
}

type dialCodeGenerateResult struct {
	DialCodes []string `json:"dialcodes"`
}

type dialCodeSearchResult struct {
	DialCodes []struct {
		Identifier string `json:"identifier"`
		Status     string `json:"status"`
	} `json:"dialcodes"`
}

type userReadResult struct {
	Response struct {
		ID        string `json:"id"`
		UserID    string `json:"userId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"response"`
}

type contentCreateResult struct {
	Identifier string `json:"identifier"`
	NodeID     string `json:"node_id"`
}

type contentUploadResult struct {
	ContentURL string `json:"content_url"`
}

// ---- SunbirdProvider implementation ----

// GenerateCodes reserves count dial codes for publisher.
func (s *SunbirdClient) GenerateCodes(ctx context.Context, userToken string, count int, publisher string) ([]string, error) {
	body := sunbirdRequest{Request: map[string]interface{}{
		"dialcodes": map[string]interface{}{"count": count, "publisher": publisher},
	}}

	var out dialCodeGenerateResult
	if err := s.doJSON(ctx, http.MethodPost, pathGenerateDialCode, userToken, body, &out); err != nil {
		return nil, fmt.Errorf("sunbird GenerateCodes: %w", err)
	}
	if len(out.DialCodes) == 0 {
		return nil, fmt.Errorf("sunbird GenerateCodes: %w", &SunbirdError{StatusCode: http.StatusOK, ResponseCode: SunbirdServiceErrorCode, Message: "no dial codes generated"})
	}
	return out.DialCodes, nil
}

// PublishCode marks a generated dial code as live.
func (s *SunbirdClient) PublishCode(ctx context.Context, userToken, code string) error {
	body := sunbirdRequest{Request: map[string]interface{}{}}
	if err := s.doJSON(ctx, http.MethodPost, pathPublishDialCode+"/"+url.PathEscape(code), userToken, body, nil); err != nil {
		return fmt.Errorf("sunbird PublishCode: %w", err)
	}
	return nil
}

// CodeStatus returns the lifecycle status of a dial code.
func (s *SunbirdClient) CodeStatus(ctx context.Context, userToken, code string) (string, error) {
	body := sunbirdRequest{Request: map[string]interface{}{
		"search": map[string]interface{}{"identifier": code},
	}}

	var out dialCodeSearchResult
	if err := s.doJSON(ctx, http.MethodPost, pathSearchDialCode, userToken, body, &out); err != nil {
		return "", fmt.Errorf("sunbird CodeStatus: %w", err)
	}
	for _, dc := range out.DialCodes {
		if dc.Identifier == code {
			return dc.Status, nil
		}
	}
	return "", fmt.Errorf("sunbird CodeStatus: %w", &SunbirdError{StatusCode: http.StatusOK, ResponseCode: SunbirdServiceErrorCode, Message: "dial code not found: " + code})
}

// LinkContent attaches a dial code to a content item.
func (s *SunbirdClient) LinkContent(ctx context.Context, userToken, contentID, code string) error {
	body := sunbirdRequest{Request: map[string]interface{}{
		"content": map[string]interface{}{
			"identifier": []string{contentID},
			"dialcode":   []string{code},
		},
	}}
	if err := s.doJSON(ctx, http.MethodPost, pathLinkContent, userToken, body, nil); err != nil {
		return fmt.Errorf("sunbird LinkContent: %w", err)
	}
	return nil
}

// PublishContent publishes a content item with the publisher credential. A
// rejected credential is refreshed and the call retried once.
func (s *SunbirdClient) PublishContent(ctx context.Context, contentID, lastPublishedBy string) error {
	body := sunbirdRequest{Request: map[string]interface{}{
		"content": map[string]interface{}{"lastPublishedBy": lastPublishedBy},
	}}
	path := pathPublishContent + "/" + url.PathEscape(contentID)

	for attempt := 0; ; attempt++ {
		token, err := s.publisher.Token(ctx)
		if err != nil {
			return fmt.Errorf("sunbird PublishContent: publisher token: %w", err)
		}

		err = s.doJSON(ctx, http.MethodPost, path, token, body, nil)
		var sbErr *SunbirdError
		if attempt == 0 && errors.As(err, &sbErr) && sbErr.StatusCode == http.StatusUnauthorized {
			s.logger.Warn("publisher token rejected, refreshing", zap.String("content_id", contentID))
			s.publisher.Invalidate()
			continue
		}
		if err != nil {
			return fmt.Errorf("sunbird PublishContent: %w", err)
		}
		return nil
	}
}

// GetUserProfile reads the profile of userID.
func (s *SunbirdClient) GetUserProfile(ctx context.Context, userToken, userID string) (*models.UserProfile, error) {
	var out userReadResult
	if err := s.doJSON(ctx, http.MethodGet, pathUserRead+"/"+url.PathEscape(userID), userToken, nil, &out); err != nil {
		return nil, fmt.Errorf("sunbird GetUserProfile: %w", err)
	}

	id := out.Response.ID
	if id == "" {
		id = out.Response.UserID
	}
	return &models.UserProfile{
		ID:        id,
		FirstName: out.Response.FirstName,
		LastName:  out.Response.LastName,
	}, nil
}

// IndexSync asks the platform to reindex the given objects.
func (s *SunbirdClient) IndexSync(ctx context.Context, userToken, objectType string, ids []string) error {
	body := sunbirdRequest{Request: map[string]interface{}{
		"objectType": objectType,
		"objectIds":  ids,
	}}
	if err := s.doJSON(ctx, http.MethodPost, pathIndexSync, userToken, body, nil); err != nil {
		return fmt.Errorf("sunbird IndexSync: %w", err)
	}
	return nil
}

// CreateContent creates a draft content item and returns its identifier.
func (s *SunbirdClient) CreateContent(ctx context.Context, userToken string, content models.ContentMetadata) (string, error) {
	body := sunbirdRequest{Request: map[string]interface{}{"content": content}}

	var out contentCreateResult
	if err := s.doJSON(ctx, http.MethodPost, pathCreateContent, userToken, body, &out); err != nil {
		return "", fmt.Errorf("sunbird CreateContent: %w", err)
	}
	if out.Identifier == "" {
		out.Identifier = out.NodeID
	}
	return out.Identifier, nil
}

// UploadContent uploads the content artifact as the multipart field
// "fileName" and returns the artifact URL.
func (s *SunbirdClient) UploadContent(ctx context.Context, userToken, contentID, fileName, mimeType string, file io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="fileName"; filename=%q`, fileName))
		h.Set("Content-Type", mimeType)

		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := s.newRequest(ctx, http.MethodPost, pathUploadContent+"/"+url.PathEscape(contentID), userToken, pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("sunbird UploadContent: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out contentUploadResult
	if err := s.do(req, &out); err != nil {
		pr.Close()
		return "", fmt.Errorf("sunbird UploadContent: %w", err)
	}
	return out.ContentURL, nil
}

// ---- HTTP helpers ----

func (s *SunbirdClient) newRequest(ctx context.Context, method, path, userToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.opts.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("authorization", s.opts.Authorization)
	if userToken != "" {
		req.Header.Set("x-authenticated-user-token", userToken)
	}
	if s.opts.ChannelID != "" {
		req.Header.Set("x-channel-id", s.opts.ChannelID)
	}
	return req, nil
}

func (s *SunbirdClient) doJSON(ctx context.Context, method, path, userToken string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := s.newRequest(ctx, method, path, userToken, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, out)
}

// do sends req and decodes the "result" member of an OK answer into out.
func (s *SunbirdClient) do(req *http.Request, out interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("sunbird request failed", zap.String("path", req.URL.Path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSunbirdServiceDown, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrSunbirdServiceDown, err)
	}

	var env sunbirdResponse
	decodeErr := json.Unmarshal(respBytes, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || (env.ResponseCode != "" && env.ResponseCode != "OK") {
		sbErr := &SunbirdError{
			StatusCode:   resp.StatusCode,
			ResponseCode: env.ResponseCode,
			Message:      env.Params.ErrMsg,
		}
		if sbErr.ResponseCode == "" || sbErr.ResponseCode == "OK" {
			sbErr.ResponseCode = SunbirdServiceErrorCode
		}
		if sbErr.Message == "" && decodeErr != nil {
			sbErr.Message = strings.TrimSpace(string(respBytes))
		}
		return sbErr
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
