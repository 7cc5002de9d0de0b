// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package webui is a client for the OpenWebUI knowledge and files API.
package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/knowledge-sync/internal/httputil"
	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// ErrRemoteRejected marks API responses the knowledge base refused. Callers
// log it, count the document as failed, and carry on with the rest of the tick.
var ErrRemoteRejected = errors.New("knowledge API rejected request")

// ErrNotFound additionally marks HTTP 404 responses so callers can re-create
// entries whose backing file disappeared on the remote side.
var ErrNotFound = errors.New("not found")

// File is the subset of the OpenWebUI file object the sync loop needs.
type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Meta     struct {
		Name string `json:"name"`
	} `json:"meta"`
}

// Name returns the original upload filename, which carries the document's
// relative path.
func (f File) Name() string {
	if f.Meta.Name != "" {
		return f.Meta.Name
	}
	return f.Filename
}

// KnowledgeInfo describes a knowledge base and its attached files.
type KnowledgeInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Files []File `json:"files"`
}

// Client calls the OpenWebUI REST API for one knowledge base.
type Client struct {
	http        *http.Client
	base        string
	token       string
	knowledgeID string
	userAgent   string
	maxRetries  int
}

// NewClient builds a Client from the WebUI settings. The HTTP timeout
// defaults to 60 s, generous enough for large document uploads.
func NewClient(cfg types.WebUIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		base:        strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		knowledgeID: cfg.KnowledgeID,
		userAgent:   cfg.UserAgent,
		maxRetries:  cfg.MaxRetries,
	}
}

// Knowledge fetches the knowledge base record, including the list of
// attached files. The sync loop uses it to adopt entries uploaded by an
// earlier run whose local state is gone.
func (c *Client) Knowledge(ctx context.Context) (*KnowledgeInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/knowledge/"+c.knowledgeID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetching knowledge base: %w", err)
	}
	defer resp.Body.Close()

	if err := c.statusErr("fetching knowledge base", resp); err != nil {
		return nil, err
	}

	var info KnowledgeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parsing knowledge base response: %w", err)
	}
	return &info, nil
}

// UploadFile uploads document content as a new file object. The filename is
// the document's relative path and becomes its identity on the remote.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return File{}, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return File{}, fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return File{}, fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/files/", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return File{}, fmt.Errorf("creating upload request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return File{}, fmt.Errorf("uploading %s: %w", filename, err)
	}
	defer resp.Body.Close()

	if err := c.statusErr("uploading "+filename, resp); err != nil {
		return File{}, err
	}

	var file File
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return File{}, fmt.Errorf("parsing upload response: %w", err)
	}
	if file.ID == "" {
		return File{}, fmt.Errorf("uploading %s: response carried no file ID: %w", filename, ErrRemoteRejected)
	}
	return file, nil
}

// UpdateFileContent replaces the content of an existing file object.
func (c *Client) UpdateFileContent(ctx context.Context, fileID string, data []byte) error {
	body := map[string]string{"content": string(data)}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/files/"+fileID+"/data/content/update", body)
	if err != nil {
		return err
	}
	return c.doExpectOK(ctx, req, "updating file "+fileID)
}

// DeleteFile removes a file object entirely.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/v1/files/"+fileID, nil)
	if err != nil {
		return err
	}
	return c.doExpectOK(ctx, req, "deleting file "+fileID)
}

// AddFile attaches an uploaded file to the knowledge base, which triggers
// indexing.
func (c *Client) AddFile(ctx context.Context, fileID string) error {
	return c.knowledgeFileOp(ctx, "add", fileID)
}

// ReindexFile tells the knowledge base to re-process a file after its
// content changed.
func (c *Client) ReindexFile(ctx context.Context, fileID string) error {
	return c.knowledgeFileOp(ctx, "update", fileID)
}

// RemoveFile detaches a file from the knowledge base.
func (c *Client) RemoveFile(ctx context.Context, fileID string) error {
	return c.knowledgeFileOp(ctx, "remove", fileID)
}

func (c *Client) knowledgeFileOp(ctx context.Context, op, fileID string) error {
	body := map[string]string{"file_id": fileID}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/knowledge/"+c.knowledgeID+"/file/"+op, body)
	if err != nil {
		return err
	}
	return c.doExpectOK(ctx, req, fmt.Sprintf("knowledge %s for file %s", op, fileID))
}

// newRequest builds a JSON API request. A nil body sends no payload.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

func (c *Client) doExpectOK(ctx context.Context, req *http.Request, op string) error {
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// The success body is never read, so drain it to keep the connection.
	defer httputil.DrainAndClose(resp.Body)
	return c.statusErr(op, resp)
}

// statusErr converts a non-2xx response into an ErrRemoteRejected wrap
// carrying the status and a body snippet. 404s additionally match ErrNotFound.
func (c *Client) statusErr(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	kind := error(ErrRemoteRejected)
	if resp.StatusCode == http.StatusNotFound {
		kind = errors.Join(ErrRemoteRejected, ErrNotFound)
	}

	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return fmt.Errorf("%s: HTTP %d: %w", op, resp.StatusCode, kind)
	}
	return fmt.Errorf("%s: HTTP %d (%s): %w", op, resp.StatusCode, msg, kind)
}
