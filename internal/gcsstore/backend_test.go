package gcsstore

import (
	"context"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/clearledger/internal/ledger"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{uri: "gs://ledgers/companies.json", bucket: "ledgers", object: "companies.json"},
		{uri: "gs://ledgers/prod/2026/companies.json", bucket: "ledgers", object: "prod/2026/companies.json"},
		{uri: "s3://ledgers/companies.json", wantErr: true},
		{uri: "gs://ledgers", wantErr: true},
		{uri: "gs://ledgers/", wantErr: true},
		{uri: "gs:///companies.json", wantErr: true},
		{uri: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.object, object)
		})
	}
}

func TestConditions(t *testing.T) {
	assert.Equal(t, storage.Conditions{DoesNotExist: true}, conditions(0))
	assert.Equal(t, storage.Conditions{GenerationMatch: 42}, conditions(42))
}

func TestNew_RequiresLocation(t *testing.T) {
	_, err := New(context.Background(), "", "companies.json")
	require.Error(t, err)
	_, err = NewFromURI(context.Background(), "gs://only-bucket")
	require.Error(t, err)
}

func TestURI(t *testing.T) {
	b := &Backend{bucket: "ledgers", object: "prod/companies.json"}
	assert.Equal(t, "gs://ledgers/prod/companies.json", b.URI())
	assert.NoError(t, b.Close())
}

func TestBackend_LoadMissingObject(t *testing.T) {
	fake := newFakeGCS(t)
	b := fake.backend(t, "ledgers", "companies.json")

	data, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestBackend_FirstWriteRequiresAbsentObject(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGCS(t)
	b := fake.backend(t, "ledgers", "companies.json")

	_, err := b.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, []byte(`{"companies": {}}`)))
	require.NoError(t, b.Save(ctx, []byte(`{"companies": {"acme": {}}}`)))

	obj, ok := fake.get("ledgers", "companies.json")
	require.True(t, ok)
	assert.Equal(t, `{"companies": {"acme": {}}}`, string(obj.data))
	// The second save is conditioned on the generation the first one created.
	assert.Equal(t, []string{"0", "1"}, fake.preconditions())
}

func TestBackend_LoadTracksGeneration(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGCS(t)
	gen := fake.put("ledgers", "companies.json", []byte(`{"companies": {}}`))
	b := fake.backend(t, "ledgers", "companies.json")

	data, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"companies": {}}`, string(data))

	require.NoError(t, b.Save(ctx, []byte(`{}`)))
	assert.Equal(t, []string{"1"}, fake.preconditions())
	assert.EqualValues(t, 1, gen)
}

func TestBackend_ConcurrentWriterIsDetected(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGCS(t)
	fake.put("ledgers", "companies.json", []byte(`{"companies": {}}`))
	b := fake.backend(t, "ledgers", "companies.json")

	_, err := b.Load(ctx)
	require.NoError(t, err)

	// Another process replaces the object.
	fake.put("ledgers", "companies.json", []byte(`{"companies": {"globex": {}}}`))

	err = b.Save(ctx, []byte(`{"companies": {"acme": {}}}`))
	require.ErrorIs(t, err, ErrGenerationMismatch)

	obj, _ := fake.get("ledgers", "companies.json")
	assert.Equal(t, `{"companies": {"globex": {}}}`, string(obj.data))

	// Reloading picks up the new generation and the write goes through.
	_, err = b.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, []byte(`{"companies": {"acme": {}}}`)))
}

func TestBackend_CreatedElsewhereAfterMissingLoad(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGCS(t)
	b := fake.backend(t, "ledgers", "companies.json")

	_, err := b.Load(ctx)
	require.NoError(t, err)
	fake.put("ledgers", "companies.json", []byte(`{"companies": {}}`))

	require.ErrorIs(t, b.Save(ctx, []byte(`{}`)), ErrGenerationMismatch)
}

func TestBackend_LedgerStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGCS(t)

	first := ledger.NewStore(fake.backend(t, "ledgers", "prod/companies.json"))
	require.NoError(t, first.CreateCompany(ctx, "acme", "Acme"))
	require.NoError(t, first.AddTransaction(ctx, "acme", ledger.NewTransaction("acme", "Lunch", decimal.RequireFromString("12.5"), "food")))

	second := ledger.NewStore(fake.backend(t, "ledgers", "prod/companies.json"))
	txs, err := second.Transactions(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Lunch", txs[0].Description)

	obj, ok := fake.get("ledgers", "prod/companies.json")
	require.True(t, ok)
	assert.Contains(t, string(obj.data), `"acme"`)
}
