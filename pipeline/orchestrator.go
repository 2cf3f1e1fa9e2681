package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/archive"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/entry"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/publish"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/stats"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/verify"
)

// Orchestrator runs the pipeline for one Config. Runs on the same
// Orchestrator are serialized.
type Orchestrator struct {
	store     objectstore.Store
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
	observer  func(from, to State)
	metrics   *Metrics
	publisher *publish.Publisher
	verifier  *verify.Verifier
	stats     *stats.Aggregator

	runMu sync.Mutex

	stateMu sync.RWMutex
	state   State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures the orchestrator with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStateObserver registers fn to be called on every state transition.
func WithStateObserver(fn func(from, to State)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// New creates an Orchestrator. Unset Config fields take their defaults and
// the result is validated.
func New(store objectstore.Store, cfg Config, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.NewError(errors.CodeInvalidConfig, "new orchestrator", fmt.Errorf("store is required"))
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		metrics: &Metrics{},
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	o.publisher = publish.New(store, cfg.Bucket, cfg.DatasetPrefix)
	o.verifier = verify.New(store, verify.WithSubpaths(cfg.ExpectedSubpaths), verify.WithLogger(o.logger))
	o.stats = stats.New(store)
	return o, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Metrics returns the orchestrator's counters.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

func (o *Orchestrator) transition(to State) {
	o.stateMu.Lock()
	from := o.state
	if !CanTransition(from, to) {
		o.stateMu.Unlock()
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", from, to))
	}
	o.state = to
	o.stateMu.Unlock()

	o.logger.Debug("state transition", "from", from, "to", to)
	if o.observer != nil {
		o.observer(from, to)
	}
}

// Run executes the pipeline once and returns its report.
//
// A fatal preflight error (the store is unreachable, or the archive is
// missing or corrupt) ends the run in StateFailed before any entry is read or
// written; the report and the error are both returned. Otherwise the run ends
// in StateDone and the error is nil, unless ctx was cancelled: then entries
// not yet started are skipped, in-flight writes finish, verification and
// stats still describe what was written, and ctx's error is returned
// alongside the completed report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	o.stateMu.Lock()
	o.state = StateIdle
	o.stateMu.Unlock()

	report := &Report{
		Bucket:     o.cfg.Bucket,
		ArchiveKey: o.cfg.ArchiveKey,
		Prefix:     o.cfg.DatasetPrefix,
		StartedAt:  o.now(),
	}
	o.logger.InfoContext(ctx, "starting dataset run",
		"bucket", o.cfg.Bucket,
		"archive_key", o.cfg.ArchiveKey,
		"prefix", o.cfg.DatasetPrefix,
		"concurrency", o.cfg.Concurrency)

	o.transition(StatePreflighting)
	arc, err := o.preflight(ctx, &report.Preflight)
	if err != nil {
		o.transition(StateFailed)
		report.State = StateFailed
		report.Error = err.Error()
		report.FinishedAt = o.now()
		o.logger.ErrorContext(ctx, "preflight failed", "error", err)
		return report, err
	}

	o.transition(StateProcessing)
	report.Entries = o.process(ctx, arc)
	report.Counts = tally(report.Entries)
	report.Cancelled = ctx.Err() != nil
	o.logger.InfoContext(ctx, "extraction complete",
		"entries", report.Counts.Entries,
		"valid", report.Counts.Valid,
		"invalid", report.Counts.Invalid,
		"write_failures", report.Counts.WriteFailures,
		"skipped", report.Counts.Skipped)

	// Verification and stats describe what was written, so they run to
	// completion even after cancellation.
	reportCtx := context.WithoutCancel(ctx)

	o.transition(StateVerifying)
	structure, err := o.verifier.Verify(reportCtx, o.cfg.Bucket, o.cfg.DatasetPrefix)
	report.Structure = structure
	if err != nil {
		report.addError(StateVerifying, err)
	}
	manifest, err := o.verifier.CheckManifest(reportCtx, o.cfg.Bucket, o.cfg.DatasetPrefix)
	if err != nil {
		report.addError(StateVerifying, err)
	} else {
		report.Manifest = &manifest
	}

	o.transition(StateReporting)
	ds, err := o.stats.Aggregate(reportCtx, o.cfg.Bucket, o.cfg.DatasetPrefix)
	if err != nil {
		report.addError(StateReporting, err)
		o.logger.ErrorContext(ctx, "failed to aggregate stats", "error", err)
	} else {
		report.Stats = &ds
		o.logger.InfoContext(ctx, "dataset statistics",
			"total_objects", ds.TotalObjects,
			"total_mb", fmt.Sprintf("%.2f", ds.TotalMB()),
			"images", ds.ImageCount,
			"labels", ds.LabelCount)
	}

	o.transition(StateDone)
	report.State = StateDone
	report.FinishedAt = o.now()
	o.logger.InfoContext(ctx, "dataset run complete", "summary", report.Summary())

	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// preflight confirms the archive exists, records its metadata, downloads it
// and opens it.
func (o *Orchestrator) preflight(ctx context.Context, pre *Preflight) (*archive.Archive, error) {
	bucket, key := o.cfg.Bucket, o.cfg.ArchiveKey

	found, err := o.store.Exists(ctx, bucket, key)
	if err != nil {
		return nil, connectivity(bucket, key, err)
	}
	if !found {
		return nil, errors.NewObjectError(errors.CodeArchive, "preflight", bucket, key, errors.ErrArchiveNotFound)
	}
	pre.Found = true

	objects, err := o.store.List(ctx, bucket, key, objectstore.WithMaxKeys(1))
	if err != nil {
		return nil, connectivity(bucket, key, err)
	}
	for _, obj := range objects {
		if obj.Key == key {
			pre.Size = obj.Size
			pre.LastModified = obj.LastModified
		}
	}
	o.logger.InfoContext(ctx, "found archive",
		"key", key,
		"size", pre.Size,
		"last_modified", pre.LastModified)

	data, err := o.store.Get(ctx, bucket, key)
	if err != nil {
		if errors.IsObjectNotFound(err) {
			return nil, errors.NewObjectError(errors.CodeArchive, "preflight", bucket, key,
				fmt.Errorf("%w: %w", errors.ErrArchiveNotFound, err))
		}
		return nil, connectivity(bucket, key, err)
	}
	if pre.Size == 0 {
		pre.Size = int64(len(data))
	}

	arc, err := archive.Open(data)
	if err != nil {
		return nil, errors.NewObjectError(errors.CodeArchive, "preflight", bucket, key, err)
	}
	pre.Entries = arc.Len()
	return arc, nil
}

func connectivity(bucket, key string, err error) error {
	return errors.NewObjectError(errors.CodeConnectivity, "preflight", bucket, key, err)
}

// process validates and republishes every entry on a bounded worker pool.
// Results keep archive order. Once ctx is done no further entry is started,
// but writes already under way run to completion.
func (o *Orchestrator) process(ctx context.Context, arc *archive.Archive) []EntryResult {
	names := arc.Names()
	results := make([]EntryResult, len(names))
	writeCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)

	scheduled := 0
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = o.skipped(name)
				return nil
			}
			results[i] = o.processEntry(ctx, writeCtx, arc, name)
			return nil
		})
	}
	_ = g.Wait()

	for i := scheduled; i < len(names); i++ {
		results[i] = o.skipped(names[i])
	}
	if scheduled < len(names) {
		o.logger.WarnContext(ctx, "run cancelled, entries skipped", "skipped", len(names)-scheduled)
	}
	return results
}

func (o *Orchestrator) skipped(name string) EntryResult {
	r := EntryResult{
		Outcome:   entry.Outcome{Path: name, Category: entry.Classify(name), Status: entry.StatusInvalid, Detail: "skipped"},
		TargetKey: o.publisher.TargetKey(name),
		Skipped:   true,
	}
	o.metrics.recordEntry(r, 0)
	return r
}

func (o *Orchestrator) processEntry(ctx, writeCtx context.Context, arc *archive.Archive, name string) EntryResult {
	o.logger.InfoContext(ctx, "extracting", "entry", name)

	e, err := arc.Read(name)
	if err != nil {
		// Nothing can be published without a payload.
		outcome := entry.Outcome{Path: name, Category: entry.Classify(name), Status: entry.StatusInvalid, Detail: err.Error()}
		r := EntryResult{Outcome: outcome, TargetKey: o.publisher.TargetKey(name)}
		o.logger.ErrorContext(ctx, "failed to read entry", "entry", name, "error", err)
		o.metrics.recordEntry(r, 0)
		return r
	}

	// Validation never gates publishing.
	outcome := entry.Validate(name, e.Payload)
	key, err := o.publisher.Publish(writeCtx, name, e.Payload)

	r := EntryResult{Outcome: outcome, TargetKey: key, Published: err == nil}
	if err != nil {
		r.WriteError = err.Error()
		o.logger.ErrorContext(ctx, "failed to publish entry", "entry", name, "key", key, "error", err)
	}

	switch {
	case outcome.Valid() && outcome.Category == entry.CategoryImage:
		o.logger.InfoContext(ctx, "verified image integrity", "entry", name)
	case outcome.Valid() && outcome.Category == entry.CategoryLabel:
		o.logger.InfoContext(ctx, "verified label format", "entry", name)
	case !outcome.Valid():
		o.logger.ErrorContext(ctx, "entry failed validation",
			"entry", name,
			"category", outcome.Category,
			"detail", outcome.Detail)
	}

	o.metrics.recordEntry(r, len(e.Payload))
	return r
}
