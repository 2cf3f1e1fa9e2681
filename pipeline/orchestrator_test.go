package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/entry"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore/memory"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/verify"
)

const (
	testBucket  = "dataset-bucket"
	testArchive = "Darts.v2i.yolov11.zip"
	testPrefix  = "Darts.v2i.yolov11"
)

func testConfig() Config {
	return Config{Bucket: testBucket, ArchiveKey: testArchive, Concurrency: 3}
}

func seedArchive(t *testing.T, store *memory.Store, entries ...testutil.ZipEntry) []byte {
	t.Helper()
	data := testutil.BuildZip(entries...)
	require.NoError(t, store.Put(context.Background(), testBucket, testArchive, data))
	return data
}

func datasetKeys(store *memory.Store) []string {
	var keys []string
	for _, key := range store.Keys(testBucket) {
		if strings.HasPrefix(key, testPrefix+"/") {
			keys = append(keys, key)
		}
	}
	return keys
}

func TestRun_ThreeEntryScenario(t *testing.T) {
	store := memory.New()
	png := testutil.PNG(8, 8)
	seedArchive(t, store,
		testutil.ZipEntry{Name: "train/images/a.jpg", Payload: testutil.JPEG(8, 8)},
		testutil.ZipEntry{Name: "train/labels/a.txt", Payload: []byte("0 0.5 0.5 0.2 0.2")},
		testutil.ZipEntry{Name: "valid/images/b.png", Payload: png[:len(png)/2]},
	)

	o, err := New(store, testConfig())
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, StateDone, o.State())

	assert.Equal(t, []string{
		testPrefix + "/train/images/a.jpg",
		testPrefix + "/train/labels/a.txt",
		testPrefix + "/valid/images/b.png",
	}, datasetKeys(store))

	require.Len(t, report.Entries, 3)
	assert.Equal(t, entry.StatusValid, report.Entries[0].Status)
	assert.Equal(t, entry.StatusValid, report.Entries[1].Status)
	assert.Equal(t, entry.StatusInvalid, report.Entries[2].Status)
	assert.NotEmpty(t, report.Entries[2].Detail)
	for _, e := range report.Entries {
		assert.True(t, e.Published)
	}

	assert.Equal(t, []string{"valid/labels", "test/images", "test/labels"}, report.Structure.Missing())
	require.NotNil(t, report.Stats)
	assert.Equal(t, 3, report.Stats.TotalObjects)
	assert.Equal(t, 2, report.Stats.ImageCount)
	assert.Equal(t, 1, report.Stats.LabelCount)

	assert.Equal(t, 2, report.Counts.Valid)
	assert.Equal(t, 1, report.Counts.Invalid)
	assert.Equal(t, CategoryCounts{Valid: 1, Invalid: 1}, report.Counts.ByCategory[entry.CategoryImage])
	assert.Equal(t, CategoryCounts{Valid: 1}, report.Counts.ByCategory[entry.CategoryLabel])
	assert.Len(t, report.Invalid(), 1)

	require.NotNil(t, report.Manifest)
	assert.False(t, report.Manifest.Found)
	assert.Empty(t, report.Errors)
}

func TestRun_MissingArchive(t *testing.T) {
	store := memory.New()
	store.CreateBucket(testBucket)

	var states []State
	o, err := New(store, testConfig(), WithStateObserver(func(_, to State) {
		states = append(states, to)
	}))
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeArchive, errors.CodeOf(err))
	assert.ErrorIs(t, err, errors.ErrArchiveNotFound)
	assert.True(t, errors.IsFatal(err))

	assert.Equal(t, StateFailed, report.State)
	assert.Equal(t, []State{StatePreflighting, StateFailed}, states)
	assert.False(t, report.Preflight.Found)
	assert.Empty(t, report.Entries)
	assert.Empty(t, store.Keys(testBucket))
	assert.Contains(t, report.Summary(), "failed")
}

func TestRun_CorruptArchive(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Put(context.Background(), testBucket, testArchive, []byte("PK\x03\x04 not really")))

	o, err := New(store, testConfig())
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeArchive, errors.CodeOf(err))
	assert.ErrorIs(t, err, errors.ErrCorruptArchive)
	assert.Equal(t, StateFailed, report.State)
	assert.True(t, report.Preflight.Found)
	assert.Equal(t, []string{testArchive}, store.Keys(testBucket))
}

func TestRun_UnreachableStore(t *testing.T) {
	store := &faultyStore{Store: memory.New(), existsErr: errors.ErrConnection}

	o, err := New(store, testConfig())
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeConnectivity, errors.CodeOf(err))
	assert.Equal(t, StateFailed, report.State)
}

func TestRun_NegativeLabelFieldIsStillPublished(t *testing.T) {
	store := memory.New()
	seedArchive(t, store, testutil.ZipEntry{Name: "train/labels/a.txt", Payload: []byte("1 -0.1 0.2 0.3 0.4")})

	o, err := New(store, testConfig())
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, entry.StatusInvalid, report.Entries[0].Status)
	assert.True(t, report.Entries[0].Published)

	got, err := store.Get(context.Background(), testBucket, testPrefix+"/train/labels/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("1 -0.1 0.2 0.3 0.4"), got)
}

func TestRun_Idempotent(t *testing.T) {
	store := memory.New()
	seedArchive(t, store,
		testutil.ZipEntry{Name: "train/images/a.jpg", Payload: testutil.JPEG(4, 4)},
		testutil.ZipEntry{Name: "train/labels/a.txt", Payload: []byte("0 0.5 0.5 0.2 0.2")},
		testutil.ZipEntry{Name: "data.yaml", Payload: []byte("train: train/images\nval: valid/images\nnc: 1\nnames: [dart]\n")},
	)

	o, err := New(store, testConfig())
	require.NoError(t, err)

	snapshot := func() map[string][]byte {
		out := make(map[string][]byte)
		for _, key := range store.Keys(testBucket) {
			data, err := store.Get(context.Background(), testBucket, key)
			require.NoError(t, err)
			out[key] = data
		}
		return out
	}

	first, err := o.Run(context.Background())
	require.NoError(t, err)
	afterFirst := snapshot()

	second, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, afterFirst, snapshot())
	assert.Equal(t, first.Counts, second.Counts)
	assert.Equal(t, *first.Stats, *second.Stats)
	assert.True(t, second.Manifest.OK())
	assert.Equal(t, int64(6), o.Metrics().Snapshot().Published)
}

func TestRun_StateSequence(t *testing.T) {
	store := memory.New()
	seedArchive(t, store, testutil.ZipEntry{Name: "a.txt", Payload: []byte("0 1 1 1 1")})

	var transitions []string
	o, err := New(store, testConfig(), WithStateObserver(func(from, to State) {
		require.True(t, CanTransition(from, to))
		transitions = append(transitions, string(from)+">"+string(to))
	}))
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"idle>preflighting",
		"preflighting>processing",
		"processing>verifying",
		"verifying>reporting",
		"reporting>done",
	}, transitions)
}

func TestRun_PreservesArchiveOrder(t *testing.T) {
	store := memory.New()
	var entries []testutil.ZipEntry
	var want []string
	for i := range 40 {
		name := fmt.Sprintf("train/labels/%02d.txt", 39-i)
		entries = append(entries, testutil.ZipEntry{Name: name, Payload: []byte("0 0.1 0.1 0.1 0.1")})
		want = append(want, name)
	}
	seedArchive(t, store, entries...)

	o, err := New(store, Config{Bucket: testBucket, ArchiveKey: testArchive, Concurrency: 8})
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	var got []string
	for _, e := range report.Entries {
		got = append(got, e.Path)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 40, report.Preflight.Entries)
}

func TestRun_BoundsConcurrency(t *testing.T) {
	inner := memory.New()
	var entries []testutil.ZipEntry
	for i := range 20 {
		entries = append(entries, testutil.ZipEntry{Name: fmt.Sprintf("other/%d.bin", i), Payload: []byte{byte(i)}})
	}
	seedArchive(t, inner, entries...)

	store := &slowStore{Store: inner, delay: 5 * time.Millisecond}
	o, err := New(store, Config{Bucket: testBucket, ArchiveKey: testArchive, Concurrency: 3})
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, store.max.Load(), int32(3))
	assert.GreaterOrEqual(t, store.max.Load(), int32(1))
}

func TestRun_WriteFailureDoesNotAbort(t *testing.T) {
	inner := memory.New()
	seedArchive(t, inner,
		testutil.ZipEntry{Name: "train/labels/a.txt", Payload: []byte("0 0.5 0.5 0.2 0.2")},
		testutil.ZipEntry{Name: "train/labels/b.txt", Payload: []byte("0 0.5 0.5 0.2 0.2")},
		testutil.ZipEntry{Name: "train/labels/c.txt", Payload: []byte("0 0.5 0.5 0.2 0.2")},
	)
	store := &faultyStore{Store: inner, failPut: "b.txt"}

	o, err := New(store, testConfig())
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, report.State)
	assert.Equal(t, 1, report.Counts.WriteFailures)
	assert.Equal(t, 2, report.Counts.Published)

	b := report.Entries[1]
	assert.False(t, b.Published)
	assert.True(t, b.Valid())
	assert.Contains(t, b.WriteError, testPrefix+"/train/labels/b.txt")
	assert.Equal(t, []string{testPrefix + "/train/labels/a.txt", testPrefix + "/train/labels/c.txt"}, datasetKeys(inner))
}

func TestRun_CancellationLetsInFlightWritesFinish(t *testing.T) {
	inner := memory.New()
	var entries []testutil.ZipEntry
	for i := range 6 {
		entries = append(entries, testutil.ZipEntry{Name: fmt.Sprintf("train/labels/%d.txt", i), Payload: []byte("0 1 1 1 1")})
	}
	seedArchive(t, inner, entries...)

	store := &gatedStore{Store: inner, started: make(chan string, 6), release: make(chan struct{})}
	o, err := New(store, Config{Bucket: testBucket, ArchiveKey: testArchive, Concurrency: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		report *Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := o.Run(ctx)
		done <- result{report, err}
	}()

	<-store.started
	<-store.started
	cancel()
	close(store.release)

	var res result
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish after cancellation")
	}

	require.ErrorIs(t, res.err, context.Canceled)
	assert.False(t, errors.IsFatal(res.err))
	assert.Equal(t, StateDone, res.report.State)
	assert.True(t, res.report.Cancelled)
	assert.Equal(t, 2, res.report.Counts.Published)
	assert.Equal(t, 4, res.report.Counts.Skipped)
	assert.Len(t, datasetKeys(inner), 2)
	assert.Len(t, res.report.Entries, 6)
	assert.Equal(t, int64(4), o.Metrics().Snapshot().EntriesSkipped)

	assert.Empty(t, res.report.Errors)
	assert.Equal(t, verify.StatusPresent, res.report.Structure.Status("train/labels"))
	assert.Equal(t, verify.StatusMissing, res.report.Structure.Status("train/images"))
	require.NotNil(t, res.report.Stats)
	assert.Equal(t, 2, res.report.Stats.TotalObjects)
	assert.Equal(t, 2, res.report.Stats.LabelCount)
}

func TestRun_UsesClock(t *testing.T) {
	store := memory.New()
	seedArchive(t, store, testutil.ZipEntry{Name: "a.bin", Payload: []byte{1}})

	start := time.Date(2024, 11, 5, 9, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return start.Add(time.Duration(calls-1) * time.Minute)
	}

	o, err := New(store, testConfig(), WithClock(clock))
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, start, report.StartedAt)
	assert.Equal(t, time.Minute, report.Duration())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, testConfig())
	assert.Error(t, err)

	_, err = New(memory.New(), Config{Bucket: "Bad_Bucket"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))

	o, err := New(memory.New(), Config{Bucket: testBucket})
	require.NoError(t, err)
	cfg := o.Config()
	assert.Equal(t, DefaultArchiveKey, cfg.ArchiveKey)
	assert.Equal(t, "Darts.v2i.yolov11", cfg.DatasetPrefix)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, verify.DefaultSubpaths, cfg.ExpectedSubpaths)
}

// faultyStore injects failures into an otherwise working store.
type faultyStore struct {
	objectstore.Store
	existsErr error
	failPut   string
}

func (s *faultyStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if s.existsErr != nil {
		return false, objectstore.NewError("exists", bucket, key, s.existsErr)
	}
	return s.Store.Exists(ctx, bucket, key)
}

func (s *faultyStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	if s.failPut != "" && strings.HasSuffix(key, s.failPut) {
		return objectstore.NewError("put", bucket, key, errors.ErrAccessDenied)
	}
	return s.Store.Put(ctx, bucket, key, data)
}

// slowStore records the peak number of concurrent puts.
type slowStore struct {
	objectstore.Store
	delay   time.Duration
	current atomic.Int32
	max     atomic.Int32
}

func (s *slowStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	n := s.current.Add(1)
	defer s.current.Add(-1)
	for {
		peak := s.max.Load()
		if n <= peak || s.max.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(s.delay)
	return s.Store.Put(ctx, bucket, key, data)
}

// gatedStore holds every put until release is closed.
type gatedStore struct {
	objectstore.Store
	started chan string
	release chan struct{}
}

func (s *gatedStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	s.started <- key
	<-s.release
	return s.Store.Put(ctx, bucket, key, data)
}
