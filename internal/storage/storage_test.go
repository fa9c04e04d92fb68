package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ignite/cardscan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	ts := time.Date(2026, 3, 4, 15, 6, 7, 0, time.UTC)
	assert.Equal(t, "exports/2026/03/04/visiting_cards_report_150607.xlsx", ExportKey(ts, "xlsx"))
	assert.Equal(t, "uploads/2026/03/04/abc.png", UploadKey(ts, "abc"))
}

func TestValidKey(t *testing.T) {
	assert.NoError(t, validKey("uploads/2026/01/01/a.png"))
	for _, k := range []string{"", "/etc/passwd", "../x", "a/../../b", "a//b"} {
		assert.Error(t, validKey(k), k)
	}
}

func TestNew_SelectsBackend(t *testing.T) {
	a, err := New(context.Background(), config.ArchiveConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = New(context.Background(), config.ArchiveConfig{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalArchive{}, a)

	_, err = New(context.Background(), config.ArchiveConfig{Type: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.ArchiveConfig{Type: "s3"})
	assert.Error(t, err)
}

func TestLocalArchive_Put(t *testing.T) {
	root := t.TempDir()
	a, err := NewLocalArchive(root)
	require.NoError(t, err)

	key := "exports/2026/03/04/visiting_cards_report_150607.csv"
	require.NoError(t, a.Put(context.Background(), key, "text/csv", []byte("Name\n")))

	data, err := os.ReadFile(filepath.Join(root, "exports", "2026", "03", "04", "visiting_cards_report_150607.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Name\n", string(data))

	assert.Error(t, a.Put(context.Background(), "../escape", "text/plain", nil))
	assert.NoError(t, a.Ping(context.Background()))
}

type s3Request struct {
	method, path, contentType string
	body                      []byte
}

// fakeS3 answers path-style PutObject and HeadBucket.
func fakeS3(t *testing.T) (*httptest.Server, *[]s3Request) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []s3Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, s3Request{r.Method, r.URL.Path, r.Header.Get("Content-Type"), body})
		mu.Unlock()
		if r.Method == http.MethodPut {
			w.Header().Set("ETag", `"etag"`)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestS3Archive_PutAndPing(t *testing.T) {
	srv, reqs := fakeS3(t)
	a, err := NewS3Archive(context.Background(), config.ArchiveConfig{
		Type:            "s3",
		S3Bucket:        "cards",
		S3Prefix:        "/prod/",
		AWSRegion:       "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	require.NoError(t, a.Put(context.Background(), "uploads/2026/01/01/x.png", "image/png", []byte("png")))
	require.NoError(t, a.Ping(context.Background()))

	require.Len(t, *reqs, 2)
	put := (*reqs)[0]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/cards/prod/uploads/2026/01/01/x.png", put.path)
	assert.Equal(t, "image/png", put.contentType)
	assert.Equal(t, "png", string(put.body))
	assert.Equal(t, http.MethodHead, (*reqs)[1].method)
}
