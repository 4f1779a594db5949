package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pecuschain/farmsync/internal/cloud"
	"github.com/pecuschain/farmsync/internal/config"
	"github.com/pecuschain/farmsync/internal/delpro"
)

// fakeAPI is a scripted CloudAPI recording every call.
type fakeAPI struct {
	mu sync.Mutex

	watermarks    *cloud.Watermarks
	watermarksErr error
	ingestErr     error

	statusCalls int
	ingested    []*cloud.Payload
}

func (f *fakeAPI) SyncStatus(_ context.Context, _ string) (*cloud.Watermarks, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++

	if f.watermarksErr != nil {
		return nil, f.watermarksErr
	}

	return f.watermarks, nil
}

func (f *fakeAPI) Ingest(_ context.Context, p *cloud.Payload) (*cloud.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ingestErr != nil {
		return nil, f.ingestErr
	}

	f.ingested = append(f.ingested, p)

	return &cloud.IngestResult{Status: "success", Counts: map[string]int{}}, nil
}

// fakeExtractor returns a canned batch and records the watermarks it
// was asked to extract from.
type fakeExtractor struct {
	batch *delpro.Batch
	seen  []*cloud.Watermarks
}

func (f *fakeExtractor) ExtractAll(_ context.Context, wm *cloud.Watermarks) *delpro.Batch {
	f.seen = append(f.seen, wm)
	return f.batch
}

func staticFactory(e Extractor, closed *bool) ExtractorFactory {
	return func(*config.Config, *slog.Logger) (Extractor, func() error, error) {
		return e, func() error {
			if closed != nil {
				*closed = true
			}
			return nil
		}, nil
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.FarmID = "farm-abc"
	cfg.DatabaseName = "/nonexistent/DDM.db"

	return cfg
}

func sessionBatch(oids ...int64) *delpro.Batch {
	b := &delpro.Batch{}
	for _, oid := range oids {
		b.Sessions = append(b.Sessions, cloud.Session{OID: oid})
	}

	return b
}

func TestRunCycle_UploadsExtractedBatch(t *testing.T) {
	api := &fakeAPI{watermarks: &cloud.Watermarks{LastSessionOID: 500}}
	ext := &fakeExtractor{batch: sessionBatch(501, 502)}

	var closed bool
	s := NewSyncer(api, staticFactory(ext, &closed), slog.Default())

	err := s.RunCycle(context.Background(), testConfig())
	require.NoError(t, err)

	// Extraction started from the cloud's watermarks.
	require.Len(t, ext.seen, 1)
	assert.Equal(t, int64(500), ext.seen[0].LastSessionOID)

	require.Len(t, api.ingested, 1)
	assert.Equal(t, "farm-abc", api.ingested[0].FarmID)
	assert.Len(t, api.ingested[0].Sessions, 2)

	assert.True(t, closed)
}

func TestRunCycle_FailsOpenOnWatermarkError(t *testing.T) {
	api := &fakeAPI{watermarksErr: errors.New("connection refused")}
	ext := &fakeExtractor{batch: sessionBatch(1)}

	s := NewSyncer(api, staticFactory(ext, nil), slog.Default())

	err := s.RunCycle(context.Background(), testConfig())
	require.NoError(t, err)

	// Extraction proceeded with zero watermarks rather than stalling.
	require.Len(t, ext.seen, 1)
	assert.Equal(t, &cloud.Watermarks{}, ext.seen[0])
	assert.Len(t, api.ingested, 1)
}

func TestRunCycle_EmptyBatchSkipsUpload(t *testing.T) {
	api := &fakeAPI{watermarks: &cloud.Watermarks{}}
	ext := &fakeExtractor{batch: &delpro.Batch{}}

	s := NewSyncer(api, staticFactory(ext, nil), slog.Default())

	err := s.RunCycle(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Empty(t, api.ingested)
}

func TestRunCycle_StoreOpenFailureSkipsUpload(t *testing.T) {
	api := &fakeAPI{watermarks: &cloud.Watermarks{}}

	factory := func(*config.Config, *slog.Logger) (Extractor, func() error, error) {
		return nil, nil, delpro.ErrDatabaseMissing
	}

	s := NewSyncer(api, factory, slog.Default())

	// An unreadable local store is a quiet skip, not a cycle failure.
	err := s.RunCycle(context.Background(), testConfig())
	require.NoError(t, err)
	assert.Empty(t, api.ingested)
	assert.Equal(t, 1, api.statusCalls)
}

func TestRunCycle_UploadFailureReturnsError(t *testing.T) {
	api := &fakeAPI{
		watermarks: &cloud.Watermarks{},
		ingestErr:  cloud.ErrServerError,
	}
	ext := &fakeExtractor{batch: sessionBatch(1)}

	s := NewSyncer(api, staticFactory(ext, nil), slog.Default())

	err := s.RunCycle(context.Background(), testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrServerError)
}

func TestRunCycle_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &fakeAPI{watermarksErr: context.Canceled}
	ext := &fakeExtractor{batch: sessionBatch(1)}

	s := NewSyncer(api, staticFactory(ext, nil), slog.Default())

	err := s.RunCycle(ctx, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ext.seen)
}
