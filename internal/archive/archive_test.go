package archive

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vlab/internal/record"
	"github.com/abhisek/vlab/internal/store"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "experiment/abc.json", Key(record.KindExperiment, "abc"))
	assert.Equal(t, "challenge/42.json", Key(record.KindChallenge, "42"))
}

func TestCleanKey(t *testing.T) {
	for _, bad := range []string{"", "  ", "/etc/passwd", "../x", "a/../../b"} {
		_, err := cleanKey(bad)
		assert.Error(t, err, "key %q", bad)
	}
	k, err := cleanKey("experiment//a.json")
	require.NoError(t, err)
	assert.Equal(t, "experiment/a.json", k)
}

// exerciseStore runs the behaviour every driver shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "experiment/b.json", []byte(`{"id":"b"}`)))
	require.NoError(t, s.Put(ctx, "experiment/a.json", []byte(`{"id":"a"}`)))
	require.NoError(t, s.Put(ctx, "challenge/c.json", []byte(`{"id":"c"}`)))

	data, err := s.Get(ctx, "experiment/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a"}`, string(data))

	require.NoError(t, s.Put(ctx, "experiment/a.json", []byte(`{"id":"a2"}`)))
	data, err = s.Get(ctx, "experiment/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a2"}`, string(data))

	_, err = s.Get(ctx, "experiment/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	infos, err := s.List(ctx, "experiment/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "experiment/a.json", infos[0].Key)
	assert.Equal(t, "experiment/b.json", infos[1].Key)
	assert.Equal(t, int64(len(`{"id":"b"}`)), infos[1].Size)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.Error(t, s.Put(ctx, "../escape.json", []byte(`{}`)))
}

func TestFSStore(t *testing.T) {
	s, err := NewFS(filepath.Join(t.TempDir(), "archive"))
	require.NoError(t, err)
	assert.Equal(t, DriverFS, s.Driver())
	exerciseStore(t, s)
}

func TestNewFSRequiresDir(t *testing.T) {
	_, err := NewFS("")
	assert.Error(t, err)
}

// fakeS3 is a path-style S3 endpoint covering PutObject, GetObject and
// ListObjectsV2.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

type listResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Name        string        `xml:"Name"`
	Prefix      string        `xml:"Prefix"`
	KeyCount    int           `xml:"KeyCount"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	Size         int    `xml:"Size"`
	LastModified string `xml:"LastModified"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket != f.bucket {
		http.Error(w, "no such bucket", http.StatusNotFound)
		return
	}

	switch {
	case r.Method == http.MethodGet && key == "" && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		res := listResult{Name: f.bucket, Prefix: prefix}
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, listContent{
				Key: k, Size: len(f.objects[k]), LastModified: "2026-01-01T00:00:00.000Z",
			})
		}
		res.KeyCount = len(res.Contents)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)

	case r.Method == http.MethodPut && key != "":
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && key != "":
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		_, _ = w.Write(body)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newFakeS3(t *testing.T, prefix string) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "vlab-test", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "vlab-test",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		Prefix:          prefix,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Store(t *testing.T) {
	s, fake := newFakeS3(t, "")
	assert.Equal(t, DriverS3, s.Driver())
	exerciseStore(t, s)
	assert.Len(t, fake.objects, 3)
}

func TestS3StorePrefix(t *testing.T) {
	s, fake := newFakeS3(t, "lab1/")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "experiment/x.json", []byte(`{}`)))
	_, ok := fake.objects["lab1/experiment/x.json"]
	assert.True(t, ok, "object stored without prefix: %v", fake.objects)

	infos, err := s.List(ctx, "experiment/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "experiment/x.json", infos[0].Key)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFS, s.Driver())

	_, err = Open(ctx, Config{Driver: "ftp"})
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()
	runs := st.RunRepo()

	now := time.Now().UTC()
	require.NoError(t, runs.SaveExperiment(ctx, &store.ExperimentRun{
		RunID: "e1", CreatedAt: now, Archetype: "potato", Solution: "hypotonic",
		FinalPhase: "turgid", Record: []byte(`{"id":"e1"}`),
	}))
	require.NoError(t, runs.SaveExperiment(ctx, &store.ExperimentRun{
		RunID: "e2", CreatedAt: now, Archetype: "onion", Solution: "isotonic", FinalPhase: "normal",
	}))
	require.NoError(t, runs.SaveChallenge(ctx, &store.ChallengeRun{
		RunID: "c1", CreatedAt: now, Difficulty: "beginner", RankLabel: "Keep Experimenting",
		Record: []byte(`{"id":"c1"}`),
	}))

	dst, err := NewFS(t.TempDir())
	require.NoError(t, err)

	res, err := Export(ctx, runs, dst, ExportOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Experiments: 1, Challenges: 1, Skipped: 1}, res)

	data, err := dst.Get(ctx, "challenge/c1.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1"}`, string(data))

	again, err := Export(ctx, runs, dst, ExportOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Skipped: 3}, again)

	forced, err := Export(ctx, runs, dst, ExportOptions{Overwrite: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, forced.Experiments+forced.Challenges)
}
