package gcsstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGCS serves the subset of the Cloud Storage JSON API the backend uses:
// media downloads and multipart uploads of single objects, honouring
// ifGenerationMatch.
type fakeGCS struct {
	*httptest.Server

	mu       sync.Mutex
	objects  map[string]fakeObject // keyed by "bucket/name"
	nextGen  int64
	preconds []string // ifGenerationMatch of every upload, "" when absent
}

type fakeObject struct {
	data       []byte
	generation int64
}

func newFakeGCS(t *testing.T) *fakeGCS {
	t.Helper()
	f := &fakeGCS{objects: map[string]fakeObject{}, nextGen: 1}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// backend returns a Backend for gs://bucket/object talking to the fake.
func (f *fakeGCS) backend(t *testing.T, bucket, object string) *Backend {
	t.Helper()
	b, err := New(context.Background(), bucket, object,
		option.WithEndpoint(f.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		storage.WithJSONReads(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// put replaces an object as another writer would, bumping its generation.
func (f *fakeGCS) put(bucket, name string, data []byte) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(bucket+"/"+name, data)
}

func (f *fakeGCS) get(bucket, name string) (fakeObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[bucket+"/"+name]
	return obj, ok
}

func (f *fakeGCS) preconditions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.preconds...)
}

func (f *fakeGCS) store(key string, data []byte) int64 {
	gen := f.nextGen
	f.nextGen++
	f.objects[key] = fakeObject{data: append([]byte(nil), data...), generation: gen}
	return gen
}

func (f *fakeGCS) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		f.download(w, r)
	case http.MethodPost:
		f.upload(w, r)
	default:
		writeGCSError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// download handles GET /storage/v1/b/{bucket}/o/{object}?alt=media and the
// XML form GET /{bucket}/{object}.
func (f *fakeGCS) download(w http.ResponseWriter, r *http.Request) {
	key := ""
	if rest, ok := strings.CutPrefix(r.URL.Path, "/storage/v1/b/"); ok {
		bucket, name, _ := strings.Cut(rest, "/o/")
		key = bucket + "/" + name
	} else {
		key = strings.TrimPrefix(r.URL.Path, "/")
	}

	obj, ok := f.objects[key]
	if !ok {
		writeGCSError(w, http.StatusNotFound, "No such object: "+key)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
	w.Header().Set("X-Goog-Generation", strconv.FormatInt(obj.generation, 10))
	w.Header().Set("X-Goog-Metageneration", "1")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.data)
}

// upload handles POST /upload/storage/v1/b/{bucket}/o?uploadType=multipart.
func (f *fakeGCS) upload(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/upload")
	rest, ok := strings.CutPrefix(path, "/storage/v1/b/")
	if !ok || !strings.HasSuffix(rest, "/o") {
		writeGCSError(w, http.StatusNotFound, "unknown upload path "+r.URL.Path)
		return
	}
	bucket := strings.TrimSuffix(rest, "/o")

	meta, data, err := readMultipart(r)
	if err != nil {
		writeGCSError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := bucket + "/" + meta.Name

	precond := r.URL.Query().Get("ifGenerationMatch")
	f.preconds = append(f.preconds, precond)
	if precond != "" {
		want, err := strconv.ParseInt(precond, 10, 64)
		if err != nil {
			writeGCSError(w, http.StatusBadRequest, "bad ifGenerationMatch")
			return
		}
		current := f.objects[key].generation // 0 when absent
		if current != want {
			writeGCSError(w, http.StatusPreconditionFailed, "At least one of the pre-conditions you specified did not hold.")
			return
		}
	}

	gen := f.store(key, data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"kind":           "storage#object",
		"bucket":         bucket,
		"name":           meta.Name,
		"generation":     strconv.FormatInt(gen, 10),
		"metageneration": "1",
		"size":           strconv.Itoa(len(data)),
		"contentType":    meta.ContentType,
	})
}

type uploadMetadata struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

func readMultipart(r *http.Request) (uploadMetadata, []byte, error) {
	var meta uploadMetadata
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return meta, nil, fmt.Errorf("content type: %w", err)
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	part, err := mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("metadata part: %w", err)
	}
	if err := json.NewDecoder(part).Decode(&meta); err != nil {
		return meta, nil, fmt.Errorf("metadata: %w", err)
	}

	part, err = mr.NextPart()
	if err != nil {
		return meta, nil, fmt.Errorf("media part: %w", err)
	}
	data, err := io.ReadAll(part)
	if err != nil {
		return meta, nil, fmt.Errorf("media: %w", err)
	}
	return meta, data, nil
}

func writeGCSError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"errors":  []map[string]string{{"message": message, "reason": gcsReason(code)}},
		},
	})
}

func gcsReason(code int) string {
	switch code {
	case http.StatusNotFound:
		return "notFound"
	case http.StatusPreconditionFailed:
		return "conditionNotMet"
	default:
		return "invalid"
	}
}
