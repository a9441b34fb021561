package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/observability"
	"github.com/couchcryptid/been-map-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockConsumer struct {
	mu        sync.Mutex
	snapshots []domain.StateSnapshot
}

func (m *mockConsumer) OnExternalStateChanged(s domain.StateSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
}

func (m *mockConsumer) received() []domain.StateSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StateSnapshot(nil), m.snapshots...)
}

type failingLoader struct {
	calls atomic.Int64
}

func (f *failingLoader) LoadBatch(_ context.Context, _ []domain.Entity) error {
	f.calls.Add(1)
	return errors.New("card unavailable")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeStateEvent(t, "sensor.been_map", map[string]any{
		"visited_countries": []string{"US", "FR"},
		"current_country":   "FR",
	})

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	consumer := &mockConsumer{}
	loader := pipeline.NewSnapshotLoader(consumer)
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, pipeline.NewStateDecoder(discardLogger()), loader, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	got := consumer.received()
	require.Len(t, got, 1)
	entity := got[0].Entities["sensor.been_map"]
	assert.Equal(t, "FR", entity.Attributes["current_country"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StateEventsConsumed))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StateFeedRunning))
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	consumer := &mockConsumer{}
	p := pipeline.New(ext, pipeline.NewStateDecoder(discardLogger()), pipeline.NewSnapshotLoader(consumer),
		discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, consumer.received())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_MalformedEventSkippedAndCommitted(t *testing.T) {
	var commits atomic.Int64
	commit := func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	bad := domain.RawEvent{Value: []byte("not-json{{{"), Offset: 1, Commit: commit}
	good := makeStateEvent(t, "sensor.been_map", map[string]any{"visited_countries": []string{"JP"}})
	good.Offset = 2
	good.Commit = commit

	ext := &mockExtractor{batches: [][]domain.RawEvent{{bad, good}}}
	consumer := &mockConsumer{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, pipeline.NewStateDecoder(discardLogger()), pipeline.NewSnapshotLoader(consumer),
		discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Len(t, consumer.received(), 1)
	assert.Equal(t, int64(2), commits.Load(), "both the skipped and the applied event are committed")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StateDecodeErrors))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.StateEventsConsumed))
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	committed := false
	raw := makeStateEvent(t, "sensor.been_map", nil)
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	loader := &failingLoader{}
	p := pipeline.New(ext, pipeline.NewStateDecoder(discardLogger()), loader,
		discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	assert.Equal(t, int64(1), loader.calls.Load())
	assert.False(t, committed)
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker unreachable")}
	p := pipeline.New(ext, pipeline.NewStateDecoder(discardLogger()), pipeline.NewSnapshotLoader(&mockConsumer{}),
		discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Run(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond, "run returns only when the context ends")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestSnapshotLoader_MergesEntities(t *testing.T) {
	consumer := &mockConsumer{}
	loader := pipeline.NewSnapshotLoader(consumer)
	ctx := context.Background()

	require.NoError(t, loader.LoadBatch(ctx, []domain.Entity{
		{EntityID: "person.alex", State: "home"},
		{EntityID: "sensor.been_map", State: "1 countries"},
	}))
	require.NoError(t, loader.LoadBatch(ctx, []domain.Entity{
		{EntityID: "sensor.been_map", State: "2 countries"},
	}))

	got := consumer.received()
	require.Len(t, got, 2)
	want := domain.NewStateSnapshot(
		domain.Entity{EntityID: "person.alex", State: "home"},
		domain.Entity{EntityID: "sensor.been_map", State: "2 countries"},
	)
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "1 countries", got[0].Entities["sensor.been_map"].State, "earlier snapshots are not mutated")
}

func TestSnapshotLoader_Replace(t *testing.T) {
	consumer := &mockConsumer{}
	loader := pipeline.NewSnapshotLoader(consumer)

	require.NoError(t, loader.LoadBatch(context.Background(), []domain.Entity{{EntityID: "person.alex"}}))
	loader.Replace(domain.StateSnapshot{})

	assert.Empty(t, loader.Snapshot().Entities)
	assert.NotNil(t, loader.Snapshot().Entities)
	assert.Len(t, consumer.received(), 2)
}

func TestSnapshotLoader_EmptyBatchIsNoop(t *testing.T) {
	consumer := &mockConsumer{}
	loader := pipeline.NewSnapshotLoader(consumer)

	require.NoError(t, loader.LoadBatch(context.Background(), nil))
	assert.Empty(t, consumer.received())
}

func TestStateDecoder_Decode(t *testing.T) {
	raw := makeStateEvent(t, "sensor.been_map", map[string]any{"current_country": "CA"})

	entity, err := pipeline.NewStateDecoder(discardLogger()).Decode(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "sensor.been_map", entity.EntityID)
	assert.Equal(t, "CA", entity.Attributes["current_country"])
}

func TestStateDecoder_Invalid(t *testing.T) {
	_, err := pipeline.NewStateDecoder(discardLogger()).Decode(context.Background(), domain.RawEvent{Value: []byte("not json")})
	assert.Error(t, err)
}

// --- helpers ---

func makeStateEvent(t *testing.T, entityID string, attrs map[string]any) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"entity_id":  entityID,
		"state":      "on",
		"attributes": attrs,
	})
	require.NoError(t, err)
	return domain.RawEvent{
		Key:   []byte(entityID),
		Value: data,
		Topic: "homeassistant-states",
	}
}
