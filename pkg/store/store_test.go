package store

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataworks/strata/pkg/compression"
	"github.com/strataworks/strata/pkg/config"
	"github.com/strataworks/strata/pkg/errors"
	"github.com/strataworks/strata/pkg/formats"
	parquetcodec "github.com/strataworks/strata/pkg/formats/parquet"
	"github.com/strataworks/strata/pkg/testutil"
)

type metric struct {
	ID        int64
	Name      string
	Value     float64
	Active    bool
	CreatedAt time.Time
}

func sampleMetrics(n int) []metric {
	out := make([]metric, n)
	for i := range out {
		out[i] = metric{
			ID:        int64(i + 1),
			Name:      "metric",
			Value:     float64(i) + 0.5,
			Active:    i%2 == 0,
			CreatedAt: time.Date(2026, 8, 29, 10, 0, i, 0, time.UTC),
		}
	}
	return out
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = "file"
	cfg.Store.ConnectionString = t.TempDir()
	cfg.Store.Container = "records"
	cfg.Store.RetryDelay = 10 * time.Millisecond
	cfg.Serialization.Compression = "none"
	return cfg
}

func newTestClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), cfg, WithLogger(testutil.TestLogger(t)))
	require.NoError(t, err)
	return client
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	client := newTestClient(t, newTestConfig(t))

	in := sampleMetrics(3)
	name, err := client.Save(ctx, "runs/2026", "batch-1", in)
	require.NoError(t, err)
	assert.Equal(t, "runs/2026/batch-1.parquet", name)

	var out []metric
	require.NoError(t, client.Load(ctx, name, &out))
	require.Len(t, out, 3)
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Value, out[i].Value)
		assert.True(t, in[i].CreatedAt.Equal(out[i].CreatedAt))
	}

	var one metric
	require.NoError(t, client.LoadOne(ctx, name, &one))
	assert.Equal(t, int64(1), one.ID)
}

func TestSaveFormatOverride(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestConfig(t))

	name, err := client.Save(ctx, "runs", "batch", sampleMetrics(2), WithFormat(formats.JSON))
	require.NoError(t, err)
	assert.Equal(t, "runs/batch.json", name)

	var out []metric
	require.NoError(t, client.Load(ctx, name, &out))
	assert.Len(t, out, 2)
}

func TestSaveKeepsExplicitExtension(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestConfig(t))

	name, err := client.Save(ctx, "", "batch.parquet", sampleMetrics(1))
	require.NoError(t, err)
	assert.Equal(t, "batch.parquet", name)
}

func TestSaveExistingDestinationRetries(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestConfig(t))

	_, err := client.Save(ctx, "runs", "same", sampleMetrics(1))
	require.NoError(t, err)

	// Second save to the same destination deletes and re-uploads.
	name, err := client.Save(ctx, "runs", "same", sampleMetrics(5))
	require.NoError(t, err)

	var out []metric
	require.NoError(t, client.Load(ctx, name, &out))
	assert.Len(t, out, 5, "retried upload replaces the previous content")
}

func TestSaveJSONPayloadCompression(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Serialization.Compression = "gzip"
	client := newTestClient(t, cfg)

	name, err := client.Save(ctx, "runs", "batch", sampleMetrics(2), WithFormat(formats.JSON))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".json.gz"), "got %s", name)

	// The stored bytes are compressed.
	raw, err := client.Store().Download(ctx, name)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2], "gzip magic")

	var out []metric
	require.NoError(t, client.Load(ctx, name, &out))
	assert.Len(t, out, 2)
}

func TestSaveParquetSkipsPayloadCompression(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Serialization.Compression = "gzip"
	client := newTestClient(t, cfg)

	name, err := client.Save(ctx, "runs", "batch", sampleMetrics(2))
	require.NoError(t, err)
	assert.Equal(t, "runs/batch.parquet", name, "no payload compression suffix")

	var out []metric
	require.NoError(t, client.Load(ctx, name, &out))
	assert.Len(t, out, 2)
}

func TestSaveParquetPageCompressionFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	cfg.Serialization.ParquetCompression = "zstd"
	client := newTestClient(t, cfg)

	in := sampleMetrics(4)
	name, err := client.Save(ctx, "runs", "batch", in)
	require.NoError(t, err)

	raw, err := client.Store().Download(ctx, name)
	require.NoError(t, err)

	// The writer is deterministic, so the stored bytes must match a direct
	// zstd-page encode and differ from the snappy default.
	zstdBytes, err := parquetcodec.Marshal(in, parquetcodec.WithCompression("zstd"))
	require.NoError(t, err)
	assert.Equal(t, zstdBytes, raw, "configured page codec reaches the writer")

	snappyBytes, err := parquetcodec.Marshal(in)
	require.NoError(t, err)
	assert.NotEqual(t, snappyBytes, raw)

	var out []metric
	require.NoError(t, client.Load(ctx, name, &out))
	assert.Len(t, out, 4)
}

func TestLoadMissingObject(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestConfig(t))

	var out []metric
	err := client.Load(ctx, "runs/never-written.parquet", &out)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrObjectNotFound))
}

func TestLoadUndetectableFormat(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestConfig(t))

	var out []metric
	err := client.Load(ctx, "runs/batch.csv", &out)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestDeleteThenLoad(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, newTestConfig(t))

	name, err := client.Save(ctx, "runs", "short-lived", sampleMetrics(1))
	require.NoError(t, err)
	require.NoError(t, client.Delete(ctx, name))

	var out []metric
	err = client.Load(ctx, name, &out)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrObjectNotFound))
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name    string
		format  formats.Format
		compAlg compression.Algorithm
	}{
		{"runs/batch.json", formats.JSON, compression.None},
		{"runs/batch.parquet", formats.Parquet, compression.None},
		{"runs/batch.json.gz", formats.JSON, compression.Gzip},
		{"runs/batch.json.snappy", formats.JSON, compression.Snappy},
		{"runs/batch.json.lz4", formats.JSON, compression.LZ4},
		{"runs/batch.json.zst", formats.JSON, compression.Zstd},
		{"runs/batch.csv", "", compression.None},
		{"runs/batch", "", compression.None},
	}
	for _, tc := range cases {
		format, compAlg := detectFormat(tc.name)
		assert.Equal(t, tc.format, format, tc.name)
		assert.Equal(t, tc.compAlg, compAlg, tc.name)
	}
}

func TestOpenCachesHandles(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)

	first, err := Open(ctx, cfg.Store)
	require.NoError(t, err)

	var wg sync.WaitGroup
	handles := make([]ObjectStore, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := Open(ctx, cfg.Store)
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for _, h := range handles {
		assert.Same(t, first, h, "one handle per configuration")
	}
}

func TestOpenDistinctConfigurations(t *testing.T) {
	ctx := context.Background()
	a := newTestConfig(t)
	b := newTestConfig(t)

	ha, err := Open(ctx, a.Store)
	require.NoError(t, err)
	hb, err := Open(ctx, b.Store)
	require.NoError(t, err)
	assert.NotSame(t, ha, hb)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Store.Backend = "ftp"

	_, err := Open(context.Background(), cfg.Store)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFileStoreNoOverwrite(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig(t)
	s, err := newFileStore(cfg.Store)
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "a/b.json", []byte("one"), "application/json", false))
	err = s.Upload(ctx, "a/b.json", []byte("two"), "application/json", false)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrObjectExists))

	require.NoError(t, s.Upload(ctx, "a/b.json", []byte("two"), "application/json", true))
	data, err := s.Download(ctx, "a/b.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)

	ok, err := s.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "a/b.json"))
	ok, err = s.Exists(ctx, "a/b.json")
	require.NoError(t, err)
	assert.False(t, ok)
}
