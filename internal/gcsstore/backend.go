// Package gcsstore keeps the ledger document as a single Google Cloud Storage object.
package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/clearledger/internal/ledger"
)

// ErrGenerationMismatch is returned by Save when the object was changed by
// someone else after the last Load.
var ErrGenerationMismatch = errors.New("object changed since it was loaded")

// Backend implements ledger.Backend on top of a GCS object. Writes are
// conditional on the generation seen by the previous Load, so a document
// changed by another process is never silently overwritten.
type Backend struct {
	client *storage.Client
	bucket string
	object string

	mu         sync.Mutex
	generation int64
}

// New creates a storage client and returns a backend for gs://bucket/object.
// It assumes Application Default Credentials unless opts say otherwise.
func New(ctx context.Context, bucket, object string, opts ...option.ClientOption) (*Backend, error) {
	if bucket == "" || object == "" {
		return nil, fmt.Errorf("bucket and object are required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Backend{client: client, bucket: bucket, object: object}, nil
}

// NewFromURI is New for a gs://bucket/object URI.
func NewFromURI(ctx context.Context, uri string, opts ...option.ClientOption) (*Backend, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return New(ctx, bucket, object, opts...)
}

// URI returns the gs:// location of the document.
func (b *Backend) URI() string {
	return fmt.Sprintf("gs://%s/%s", b.bucket, b.object)
}

// Close releases the storage client.
func (b *Backend) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// Load implements ledger.Backend.
func (b *Backend) Load(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.client.Bucket(b.bucket).Object(b.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		b.generation = 0
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.URI(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.URI(), err)
	}
	b.generation = r.Attrs.Generation
	return data, nil
}

// Save implements ledger.Backend.
func (b *Backend) Save(ctx context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := b.client.Bucket(b.bucket).Object(b.object).If(conditions(b.generation))
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return b.writeError("write", err)
	}
	if err := w.Close(); err != nil {
		return b.writeError("finalize", err)
	}
	b.generation = w.Attrs().Generation
	return nil
}

func (b *Backend) writeError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%s %s: %w", op, b.URI(), ErrGenerationMismatch)
	}
	return fmt.Errorf("%s %s: %w", op, b.URI(), err)
}

// conditions returns the write precondition for the last generation read.
// Generation 0 means the object did not exist.
func conditions(generation int64) storage.Conditions {
	if generation == 0 {
		return storage.Conditions{DoesNotExist: true}
	}
	return storage.Conditions{GenerationMatch: generation}
}

// ParseURI splits gs://bucket/path/to/object into bucket and object name.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ ledger.Backend = (*Backend)(nil)
