package models

// UserDetails identifies the caller of an authenticated endpoint.
type UserDetails struct {
	UserID    string
	UserToken string
}

// ContentItem is one textbook or resource that needs a QR code.
type ContentItem struct {
	Identifier      string `json:"identifier" validate:"required"`
	Name            string `json:"name"`
	LastPublishedBy string `json:"lastPublishedBy"`
}

// GenerateQrCodesRequest is the body of the QR code generation endpoint.
type GenerateQrCodesRequest struct {
	ContentData []ContentItem `json:"contentData" validate:"required,min=1,dive"`
}

// QrCodeResult reports the dial code attached to one content item.
type QrCodeResult struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	DialCode   string `json:"dialcode,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// ScormUploadResult is returned once a SCORM archive is created and published.
type ScormUploadResult struct {
	ContentID  string `json:"contentId"`
	ContentURL string `json:"contentUrl"`
}

// UserProfile is the subset of a platform user profile the service needs.
type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ContentMetadata describes a content object to create on the platform.
type ContentMetadata struct {
	Name        string   `json:"name"`
	Code        string   `json:"code"`
	MimeType    string   `json:"mimeType"`
	ContentType string   `json:"contentType"`
	CreatedBy   string   `json:"createdBy"`
	Creator     string   `json:"creator"`
	CreatedFor  []string `json:"createdFor,omitempty"`
}

// SignedURLResult is the body of the signed upload URL endpoint.
type SignedURLResult struct {
	Success bool              `json:"success"`
	URL     string            `json:"url,omitempty"`
	Name    string            `json:"name,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Message string            `json:"message,omitempty"`
}

// DownloadableURLResult is the body of the downloadable URL endpoint.
type DownloadableURLResult struct {
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
}
