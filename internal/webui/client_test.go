// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package webui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// --- test helpers ---

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := types.WebUIConfig{
		BaseURL:     ts.URL,
		Token:       "sk-test",
		KnowledgeID: "kb-1",
		MaxRetries:  1,
	}
	cfg.UserAgent = "knowledge-sync-test"
	return NewClient(cfg)
}

func decodeBody(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

// --- tests ---

func TestUploadFile(t *testing.T) {
	var gotPath, gotAuth, gotDisposition string
	var gotContent []byte

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		// Keep the raw body so the wire-format filename (with slashes) can be
		// checked: Go's multipart reader basenames filenames on the way in.
		body := string(raw)
		if i := strings.Index(body, "Content-Disposition:"); i >= 0 {
			gotDisposition = body[i : i+strings.Index(body[i:], "\r\n")]
		}
		if i := strings.Index(body, "\r\n\r\n"); i >= 0 {
			rest := body[i+4:]
			if j := strings.Index(rest, "\r\n--"); j >= 0 {
				gotContent = []byte(rest[:j])
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "file-123", "filename": "guides/setup.md"})
	}))

	file, err := client.UploadFile(context.Background(), "guides/setup.md", []byte("# Setup"))
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/files/", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Contains(t, gotDisposition, `name="file"`)
	assert.Contains(t, gotDisposition, `filename="guides/setup.md"`)
	assert.Equal(t, "# Setup", string(gotContent))
	assert.Equal(t, "file-123", file.ID)
}

func TestUploadFileRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail": "unsupported file type"}`)
	}))

	_, err := client.UploadFile(context.Background(), "bad.bin", []byte{0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteRejected)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestUploadFileMissingID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{}`)
	}))

	_, err := client.UploadFile(context.Background(), "doc.md", []byte("x"))
	assert.ErrorIs(t, err, ErrRemoteRejected)
}

func TestKnowledge(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/knowledge/kb-1", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		io.WriteString(w, `{
			"id": "kb-1",
			"name": "Docs",
			"files": [
				{"id": "f1", "filename": "stored-1", "meta": {"name": "guides/setup.md"}},
				{"id": "f2", "filename": "notes.txt", "meta": {}}
			]
		}`)
	}))

	info, err := client.Knowledge(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "kb-1", info.ID)
	require.Len(t, info.Files, 2)
	assert.Equal(t, "guides/setup.md", info.Files[0].Name())
	// Falls back to the stored filename when meta carries no name.
	assert.Equal(t, "notes.txt", info.Files[1].Name())
}

func TestUpdateFileContent(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody = decodeBody(t, r)
		io.WriteString(w, `{}`)
	}))

	err := client.UpdateFileContent(context.Background(), "file-9", []byte("new content"))
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/files/file-9/data/content/update", gotPath)
	assert.Equal(t, map[string]string{"content": "new content"}, gotBody)
}

func TestKnowledgeFileOps(t *testing.T) {
	tests := []struct {
		name string
		call func(*Client) error
		path string
	}{
		{"add", func(c *Client) error { return c.AddFile(context.Background(), "f1") }, "/api/v1/knowledge/kb-1/file/add"},
		{"update", func(c *Client) error { return c.ReindexFile(context.Background(), "f1") }, "/api/v1/knowledge/kb-1/file/update"},
		{"remove", func(c *Client) error { return c.RemoveFile(context.Background(), "f1") }, "/api/v1/knowledge/kb-1/file/remove"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotBody map[string]string

			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotBody = decodeBody(t, r)
				io.WriteString(w, `{}`)
			}))

			require.NoError(t, tt.call(client))
			assert.Equal(t, tt.path, gotPath)
			assert.Equal(t, map[string]string{"file_id": "f1"}, gotBody)
		})
	}
}

func TestDeleteFile(t *testing.T) {
	var gotMethod, gotPath string

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		io.WriteString(w, `{}`)
	}))

	require.NoError(t, client.DeleteFile(context.Background(), "file-9"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/v1/files/file-9", gotPath)
}

func TestNotFoundIsDistinguishable(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	err := client.UpdateFileContent(context.Background(), "gone", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrRemoteRejected)
}
