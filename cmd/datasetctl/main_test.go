package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/config"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore/memory"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/pipeline"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/stats"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
)

const (
	testBucket  = "dataset-bucket"
	testArchive = "Darts.v2i.yolov11.zip"
	testPrefix  = "Darts.v2i.yolov11"
)

type harness struct {
	app   *app
	store *memory.Store
	out   *bytes.Buffer
	log   *bytes.Buffer
}

func newHarness() *harness {
	var out, log bytes.Buffer
	store := memory.New()
	store.CreateBucket(testBucket)

	a := newApp(&out, &log)
	a.fsys = billy.NewInMemoryFS()
	a.newStore = func(context.Context, config.Config) (objectstore.Store, error) {
		return store, nil
	}
	return &harness{app: a, store: store, out: &out, log: &log}
}

func (h *harness) run(args ...string) error {
	argv := append([]string{"datasetctl", "--env-file", "", "--bucket", testBucket}, args...)
	return h.app.cli().RunContext(context.Background(), argv)
}

func (h *harness) seed(t *testing.T, key string, entries ...testutil.ZipEntry) {
	t.Helper()
	require.NoError(t, h.store.Put(context.Background(), testBucket, key, testutil.BuildZip(entries...)))
}

func datasetEntries() []testutil.ZipEntry {
	return []testutil.ZipEntry{
		{Name: "train/images/a.jpg", Payload: testutil.JPEG(8, 8)},
		{Name: "train/labels/a.txt", Payload: []byte("0 0.5 0.5 0.2 0.2\n")},
		{Name: "valid/labels/b.txt", Payload: []byte("0 0.5 -0.1 0.2 0.2\n")},
	}
}

func TestRun_PublishesAndWritesReport(t *testing.T) {
	h := newHarness()
	h.seed(t, testArchive, datasetEntries()...)

	require.NoError(t, h.run("run", "--report-file", "/reports/run.json"))

	assert.Contains(t, h.store.Keys(testBucket), testPrefix+"/train/images/a.jpg")
	assert.Contains(t, h.store.Keys(testBucket), testPrefix+"/valid/labels/b.txt")

	data, err := h.app.fsys.ReadFile("/reports/run.json")
	require.NoError(t, err)
	var report pipeline.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, pipeline.StateDone, report.State)
	assert.Equal(t, 3, report.Counts.Entries)
	assert.Equal(t, 1, report.Counts.Invalid)
	assert.Equal(t, 3, report.Counts.Published)

	assert.Contains(t, h.log.String(), "invalid entry")
	assert.Contains(t, h.log.String(), "valid/labels/b.txt")
}

func TestRun_MissingArchive(t *testing.T) {
	h := newHarness()

	err := h.run("run")
	require.Error(t, err)
	assert.Equal(t, errors.CodeArchive, errors.CodeOf(err))
	assert.Equal(t, 1, exitCode(err))
	assert.Empty(t, h.store.Keys(testBucket))
}

func TestRun_PrefixFlag(t *testing.T) {
	h := newHarness()
	h.seed(t, "uploads/custom.zip", datasetEntries()...)

	require.NoError(t, h.run("--archive-key", "uploads/custom.zip", "--prefix", "v3", "run"))

	assert.Contains(t, h.store.Keys(testBucket), "v3/train/labels/a.txt")
}

func TestSetup_InvalidConfig(t *testing.T) {
	h := newHarness()

	err := h.run("--concurrency", "-1", "stats")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.CodeOf(err))
	assert.Equal(t, 2, exitCode(err))
}

func TestSetup_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("DATASET_REGION", "us-east-2")
	t.Setenv("DATASET_CONCURRENCY", "9")
	h := newHarness()

	require.NoError(t, h.run("--concurrency", "2", "stats"))

	assert.Equal(t, "us-east-2", h.app.cfg.Region)
	assert.Equal(t, 2, h.app.cfg.Concurrency)
	assert.Equal(t, testBucket, h.app.cfg.Bucket)
}

func TestVerify(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, testBucket, testPrefix+"/train/images/a.jpg", testutil.JPEG(4, 4)))
	require.NoError(t, h.store.Put(ctx, testBucket, testPrefix+"/train/labels/a.txt", []byte("0 0 0 0 0")))

	require.NoError(t, h.run("verify"))
	out := h.out.String()
	assert.Contains(t, out, "train/images")
	assert.Contains(t, out, "present")
	assert.Contains(t, out, "missing")

	err := h.run("verify", "--strict")
	require.Error(t, err)
	assert.Equal(t, errors.CodeStructureWarning, errors.CodeOf(err))
	assert.Equal(t, 1, exitCode(err))
}

func TestStats_JSON(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	require.NoError(t, h.store.Put(ctx, testBucket, testPrefix+"/train/images/a.jpg", make([]byte, 10)))
	require.NoError(t, h.store.Put(ctx, testBucket, testPrefix+"/train/labels/a.txt", make([]byte, 5)))
	require.NoError(t, h.store.Put(ctx, testBucket, testPrefix+"/data.yaml", make([]byte, 1)))

	require.NoError(t, h.run("stats", "--json"))

	var ds stats.DatasetStats
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &ds))
	assert.Equal(t, stats.DatasetStats{TotalObjects: 3, TotalBytes: 16, ImageCount: 1, LabelCount: 1}, ds)
}

func TestStats_Text(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.store.Put(context.Background(), testBucket, testPrefix+"/train/images/a.jpg", make([]byte, 10)))

	require.NoError(t, h.run("stats"))

	assert.True(t, strings.HasPrefix(h.out.String(), testPrefix+"/: 1 objects"))
}

func TestPush(t *testing.T) {
	h := newHarness()
	archive := testutil.BuildZip(datasetEntries()...)
	require.NoError(t, h.app.fsys.MkdirAll("/data", 0o755))
	require.NoError(t, h.app.fsys.WriteFile("/data/ds.zip", archive, 0o644))

	require.NoError(t, h.run("push", "--file", "/data/ds.zip"))

	got, err := h.store.Get(context.Background(), testBucket, testArchive)
	require.NoError(t, err)
	assert.Equal(t, archive, got)
}

func TestPush_Rejects(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.app.fsys.MkdirAll("/data/dir", 0o755))
	require.NoError(t, h.app.fsys.WriteFile("/data/notes.txt", []byte("not an archive"), 0o644))

	tests := []struct {
		name string
		file string
		code errors.ErrorCode
	}{
		{name: "missing file", file: "/data/nope.zip", code: errors.CodeInvalidInput},
		{name: "directory", file: "/data/dir", code: errors.CodeInvalidInput},
		{name: "not a zip", file: "/data/notes.txt", code: errors.CodeArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.run("push", "--file", tt.file)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}

	exists, err := h.store.Exists(context.Background(), testBucket, testArchive)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.NewError(errors.CodeConnectivity, "preflight", errors.ErrConnection)))
	assert.Equal(t, 2, exitCode(errors.NewError(errors.CodeInvalidConfig, "config", errors.ErrInvalidInput)))
}

func TestSetup_JSONLogs(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.run("--log-format", "json", "--log-level", "debug", "stats"))

	lines := strings.Split(strings.TrimSpace(h.log.String()), "\n")
	require.NotEmpty(t, lines)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, "connected object store", first["message"])
	assert.Equal(t, testBucket, first["bucket"])
}
