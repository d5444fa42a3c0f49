// Package confluence is a minimal Confluence Cloud client covering what
// page publication needs: page CRUD over the v2 REST API and attachment
// upload over the v1 content API.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Sentinel errors for API operations.
var (
	ErrMissingBaseURL = errors.New("confluence base URL is required")
	ErrMissingAuth    = errors.New("confluence email and API token are required")
	ErrPageNotFound   = errors.New("page not found")
)

// maxErrorBody bounds how much of an error response ends up in messages.
const maxErrorBody = 1024

// Client communicates with the Confluence Cloud REST API.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
	sleep      func(time.Duration)
}

// NewClient creates a Client for a site like https://example.atlassian.net.
// Authentication is basic auth with an account email and API token.
func NewClient(baseURL, email, apiToken string) *Client {
	return &Client{
		baseURL:  baseURL,
		email:    email,
		apiToken: apiToken,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		sleep: time.Sleep,
	}
}

// Validate checks that the client has everything it needs to make calls.
func (c *Client) Validate() error {
	if c.baseURL == "" {
		return ErrMissingBaseURL
	}
	if c.email == "" || c.apiToken == "" {
		return ErrMissingAuth
	}
	return nil
}

// Page is a Confluence page as returned by the v2 API.
type Page struct {
	ID       string      `json:"id"`
	Status   string      `json:"status"`
	Title    string      `json:"title"`
	SpaceID  string      `json:"spaceId"`
	ParentID string      `json:"parentId,omitempty"`
	Version  PageVersion `json:"version"`
}

// PageVersion is a page's version record.
type PageVersion struct {
	Number  int    `json:"number"`
	Message string `json:"message,omitempty"`
}

// pageBody wraps serialized ADF for the pages API.
type pageBody struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

// ADFRepresentation is the body representation for ADF content.
const ADFRepresentation = "atlas_doc_format"

// GetPage fetches a page with its current version.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/wiki/api/v2/pages/"+pageID, nil, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// CreatePage creates a page under a parent. The document arrives as
// already-serialized ADF JSON.
func (c *Client) CreatePage(ctx context.Context, spaceID, parentID, title string, adfJSON []byte) (*Page, error) {
	payload := map[string]any{
		"spaceId":  spaceID,
		"status":   "current",
		"title":    title,
		"parentId": parentID,
		"body": pageBody{
			Representation: ADFRepresentation,
			Value:          string(adfJSON),
		},
	}

	var page Page
	err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/wiki/api/v2/pages", payload, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePage replaces a page's content, bumping to the given version
// number.
func (c *Client) UpdatePage(ctx context.Context, pageID, spaceID, title string, version int, message string, adfJSON []byte) (*Page, error) {
	payload := map[string]any{
		"id":      pageID,
		"status":  "current",
		"title":   title,
		"spaceId": spaceID,
		"body": pageBody{
			Representation: ADFRepresentation,
			Value:          string(adfJSON),
		},
		"version": PageVersion{
			Number:  version,
			Message: message,
		},
	}

	var page Page
	err := c.doJSON(ctx, http.MethodPut, c.baseURL+"/wiki/api/v2/pages/"+pageID, payload, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Attachment identifies an uploaded file for media embedding. Either
// field may be empty when the store's response carried no usable file id;
// callers treat that as a per-asset failure, not a transport error.
type Attachment struct {
	FileID     string
	Collection string
}

// attachmentResponse is the subset of the upload response we read.
type attachmentResponse struct {
	Results []struct {
		Extensions struct {
			FileID string `json:"fileId"`
		} `json:"extensions"`
	} `json:"results"`
}

// UploadAttachment uploads a local file as an attachment of a page and
// returns the identifiers a media node needs. Transport and HTTP-level
// failures return an error; a well-formed response without a file id
// returns an empty Attachment and no error.
func (c *Client) UploadAttachment(ctx context.Context, pageID, filePath, comment string) (Attachment, error) {
	f, err := os.Open(filePath) // #nosec G304 -- path owned by the pipeline
	if err != nil {
		return Attachment{}, fmt.Errorf("opening attachment: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return Attachment{}, fmt.Errorf("building attachment form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return Attachment{}, fmt.Errorf("building attachment form: %w", err)
	}
	if err := writer.WriteField("minorEdit", "true"); err != nil {
		return Attachment{}, fmt.Errorf("building attachment form: %w", err)
	}
	if comment != "" {
		if err := writer.WriteField("comment", comment); err != nil {
			return Attachment{}, fmt.Errorf("building attachment form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return Attachment{}, fmt.Errorf("building attachment form: %w", err)
	}

	url := c.baseURL + "/wiki/rest/api/content/" + pageID + "/child/attachment"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body.Bytes()))
	if err != nil {
		return Attachment{}, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "nocheck")

	respBody, err := c.doWithRetry(req, func() (io.Reader, error) {
		return bytes.NewReader(body.Bytes()), nil
	})
	if err != nil {
		return Attachment{}, err
	}

	var parsed attachmentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Attachment{}, fmt.Errorf("decode attachment response: %w", err)
	}
	if len(parsed.Results) == 0 || parsed.Results[0].Extensions.FileID == "" {
		return Attachment{}, nil
	}

	return Attachment{
		FileID: parsed.Results[0].Extensions.FileID,
		// Media nodes reference page attachments through the page's
		// content collection.
		Collection: "contentId-" + pageID,
	}, nil
}

// doJSON performs a JSON request/response round trip with retry.
func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any) error {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.doWithRetry(req, func() (io.Reader, error) {
		if bodyBytes == nil {
			return nil, nil
		}
		return bytes.NewReader(bodyBytes), nil
	})
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doWithRetry executes the request, retrying transient failures with
// jittered backoff. rewind rebuilds the request body between attempts.
func (c *Client) doWithRetry(req *http.Request, rewind func() (io.Reader, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(backoff(attempt - 1))
			body, err := rewind()
			if err != nil {
				return nil, err
			}
			if body != nil {
				req.Body = io.NopCloser(body)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			lastErr = fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrPageNotFound, req.URL.Path)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				return nil, fmt.Errorf("read response: %w", readErr)
			}
			return respBody, nil
		case retryable(resp.StatusCode):
			lastErr = httpError(req, resp.StatusCode, respBody)
			continue
		default:
			return nil, httpError(req, resp.StatusCode, respBody)
		}
	}

	return nil, lastErr
}

// httpError formats a non-2xx response, truncating the body.
func httpError(req *http.Request, status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, status, bytes.TrimSpace(body))
}
