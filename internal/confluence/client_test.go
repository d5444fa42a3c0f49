package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "user@example.com", "token")
	c.sleep = func(time.Duration) {} // No real backoff in tests.
	return c
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		client  *Client
		wantErr error
	}{
		{"complete", NewClient("https://x.atlassian.net", "a@b.c", "tok"), nil},
		{"missing base URL", NewClient("", "a@b.c", "tok"), ErrMissingBaseURL},
		{"missing email", NewClient("https://x.atlassian.net", "", "tok"), ErrMissingAuth},
		{"missing token", NewClient("https://x.atlassian.net", "a@b.c", ""), ErrMissingAuth},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if err := tt.client.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetPage(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/wiki/api/v2/pages/123" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "user@example.com" || pass != "token" {
			t.Error("missing or wrong basic auth")
		}
		_, _ = w.Write([]byte(`{"id":"123","status":"current","title":"Demo","spaceId":"s1","version":{"number":4}}`))
	})

	page, err := c.GetPage(context.Background(), "123")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.ID != "123" || page.Title != "Demo" || page.Version.Number != 4 {
		t.Errorf("page = %+v", page)
	}
}

func TestGetPageNotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetPage(context.Background(), "missing")
	if !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("GetPage() error = %v, want ErrPageNotFound", err)
	}
}

func TestCreatePage(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/wiki/api/v2/pages" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"9","title":"New Page","version":{"number":1}}`))
	})

	page, err := c.CreatePage(context.Background(), "space-1", "parent-2", "New Page", []byte(`{"type":"doc"}`))
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if page.ID != "9" {
		t.Errorf("page.ID = %q, want %q", page.ID, "9")
	}

	if got["spaceId"] != "space-1" || got["parentId"] != "parent-2" || got["title"] != "New Page" {
		t.Errorf("request payload = %v", got)
	}
	body := got["body"].(map[string]any)
	if body["representation"] != ADFRepresentation {
		t.Errorf("representation = %v, want %q", body["representation"], ADFRepresentation)
	}
	if body["value"] != `{"type":"doc"}` {
		t.Errorf("body value = %v", body["value"])
	}
}

func TestUpdatePage(t *testing.T) {
	t.Parallel()

	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/wiki/api/v2/pages/7" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"7","version":{"number":5}}`))
	})

	page, err := c.UpdatePage(context.Background(), "7", "space-1", "Title", 5, "refresh", []byte(`{}`))
	if err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	if page.Version.Number != 5 {
		t.Errorf("version = %d, want 5", page.Version.Number)
	}

	version := got["version"].(map[string]any)
	if version["number"] != float64(5) || version["message"] != "refresh" {
		t.Errorf("version payload = %v", version)
	}
}

func TestUploadAttachment(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chart.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/wiki/rest/api/content/42/child/attachment" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Atlassian-Token") != "nocheck" {
			t.Error("missing X-Atlassian-Token header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart form: %v", err)
		}
		if r.MultipartForm.Value["minorEdit"][0] != "true" {
			t.Error("missing minorEdit field")
		}
		if r.MultipartForm.Value["comment"][0] != "Chart from cell a_0" {
			t.Errorf("comment = %v", r.MultipartForm.Value["comment"])
		}
		if _, ok := r.MultipartForm.File["file"]; !ok {
			t.Error("missing file part")
		}
		_, _ = w.Write([]byte(`{"results":[{"extensions":{"fileId":"file-abc"}}]}`))
	})

	att, err := c.UploadAttachment(context.Background(), "42", path, "Chart from cell a_0")
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if att.FileID != "file-abc" {
		t.Errorf("FileID = %q, want %q", att.FileID, "file-abc")
	}
	if att.Collection != "contentId-42" {
		t.Errorf("Collection = %q, want %q", att.Collection, "contentId-42")
	}
}

func TestUploadAttachmentWithoutFileID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chart.png")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body string
	}{
		{"empty results", `{"results":[]}`},
		{"blank file id", `{"results":[{"extensions":{"fileId":""}}]}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			att, err := c.UploadAttachment(context.Background(), "1", path, "")
			if err != nil {
				t.Fatalf("UploadAttachment: %v", err)
			}
			if att.FileID != "" || att.Collection != "" {
				t.Errorf("attachment = %+v, want empty", att)
			}
		})
	}
}

func TestUploadAttachmentMissingFile(t *testing.T) {
	t.Parallel()

	c := NewClient("https://unused.example", "a@b.c", "tok")
	_, err := c.UploadAttachment(context.Background(), "1", "/nonexistent/chart.png", "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRetryOnTransientStatus(t *testing.T) {
	t.Parallel()

	var calls int
	var slept []time.Duration
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","version":{"number":1}}`))
	})
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	page, err := c.GetPage(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.ID != "1" {
		t.Errorf("page.ID = %q, want %q", page.ID, "1")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 {
		t.Errorf("sleeps = %d, want 2", len(slept))
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.GetPage(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not carry the status", err)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	t.Parallel()

	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["bad payload"]}`))
	})

	_, err := c.CreatePage(context.Background(), "s", "p", "t", []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestRetryRewindsRequestBody(t *testing.T) {
	t.Parallel()

	var bodies []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decoding attempt %d: %v", len(bodies)+1, err)
		}
		bodies = append(bodies, payload["title"].(string))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})

	_, err := c.CreatePage(context.Background(), "s", "p", "Same Title", []byte(`{}`))
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if len(bodies) != 2 || bodies[0] != "Same Title" || bodies[1] != "Same Title" {
		t.Errorf("bodies across attempts = %v", bodies)
	}
}

func TestRetryableStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		tt := tt
		if got := retryable(tt.status); got != tt.want {
			t.Errorf("retryable(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 8; attempt++ {
		d := backoff(attempt)
		if d <= 0 {
			t.Errorf("backoff(%d) = %v, want positive", attempt, d)
		}
		if d > 45*time.Second {
			t.Errorf("backoff(%d) = %v, want capped", attempt, d)
		}
	}
	if backoff(0) >= backoff(3) && backoff(0) >= backoff(4) {
		t.Error("backoff does not grow with attempts")
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetPage(ctx, "1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("GetPage() error = %v, want context.Canceled", err)
	}
}
