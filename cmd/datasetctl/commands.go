package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/archive"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/logger"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/pipeline"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/stats"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/verify"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
)

func (a *app) run(c *cli.Context) error {
	orch, err := pipeline.New(a.store, a.cfg.Pipeline(), pipeline.WithLogger(logger.Slog(a.log)))
	if err != nil {
		return err
	}

	report, runErr := orch.Run(c.Context)
	a.logReport(report)
	m := orch.Metrics().Snapshot()
	a.log.Debug().
		Int64("published", m.Published).
		Int64("bytes_published", m.BytesPublished).
		Int64("write_failures", m.WriteFailures).
		Msg("run metrics")

	if path := c.String("report-file"); path != "" {
		if err := writeReport(a.fsys, path, report); err != nil {
			if runErr != nil {
				a.log.Error().Err(err).Msg("failed to write report")
				return runErr
			}
			return err
		}
		a.log.Info().Str("path", path).Msg("wrote report")
	}
	return runErr
}

// logReport renders the parts of a report worth a line each.
func (a *app) logReport(report *pipeline.Report) {
	for _, r := range report.Invalid() {
		a.log.Warn().
			Str("entry", r.Path).
			Str("category", string(r.Category)).
			Str("detail", r.Detail).
			Msg("invalid entry")
	}
	for _, r := range report.Entries {
		if r.WriteError != "" {
			a.log.Error().
				Str("entry", r.Path).
				Str("target", r.TargetKey).
				Str("error", r.WriteError).
				Msg("entry not republished")
		}
	}
	for _, missing := range report.Structure.Missing() {
		a.log.Warn().Str("subpath", missing).Msg("expected subpath is missing")
	}
	if report.Manifest != nil && report.Manifest.Found && !report.Manifest.OK() {
		a.log.Warn().Strs("problems", report.Manifest.Problems).Msg("data.yaml has problems")
	}

	event := a.log.Info()
	if report.State == pipeline.StateFailed {
		event = a.log.Error()
	}
	event.
		Str("state", string(report.State)).
		Dur("duration", report.Duration()).
		Msg(report.Summary())
}

// writeReport stores report as indented JSON at path, creating parent
// directories as needed.
func writeReport(fsys fs.Filesystem, path string, report *pipeline.Report) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.NewError(errors.CodeInvalidInput, "write report", err).WithKey(path)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.NewError(errors.CodeUnknown, "write report", err)
	}
	if err := fsys.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.NewError(errors.CodeWrite, "write report", err).WithKey(abs)
	}
	if err := fsys.WriteFile(abs, append(data, '\n'), 0o644); err != nil {
		return errors.NewError(errors.CodeWrite, "write report", err).WithKey(abs)
	}
	return nil
}

func (a *app) verify(c *cli.Context) error {
	pcfg := a.cfg.Pipeline()
	v := verify.New(a.store,
		verify.WithSubpaths(pcfg.ExpectedSubpaths),
		verify.WithLogger(logger.Slog(a.log)),
	)

	structure, err := v.Verify(c.Context, pcfg.Bucket, pcfg.DatasetPrefix)
	for _, r := range structure {
		fmt.Fprintf(a.out, "%-14s %s\n", r.Subpath, r.Status)
	}
	if err != nil {
		return err
	}

	manifest, err := v.CheckManifest(c.Context, pcfg.Bucket, pcfg.DatasetPrefix)
	if err != nil {
		return err
	}
	switch {
	case !manifest.Found:
		fmt.Fprintf(a.out, "%-14s missing\n", verify.ManifestName)
	case manifest.OK():
		fmt.Fprintf(a.out, "%-14s ok (%d classes)\n", verify.ManifestName, manifest.NC)
	default:
		fmt.Fprintf(a.out, "%-14s %v\n", verify.ManifestName, manifest.Problems)
	}

	if c.Bool("strict") {
		if missing := structure.Missing(); len(missing) > 0 {
			return errors.NewError(errors.CodeStructureWarning, "verify",
				fmt.Errorf("missing subpaths %v", missing)).WithKey(pcfg.DatasetPrefix)
		}
		if !manifest.OK() {
			return errors.NewError(errors.CodeStructureWarning, "verify",
				fmt.Errorf("%s is missing or invalid", verify.ManifestName)).WithKey(manifest.Key)
		}
	}
	return nil
}

func (a *app) stats(c *cli.Context) error {
	pcfg := a.cfg.Pipeline()
	ds, err := stats.New(a.store).Aggregate(c.Context, pcfg.Bucket, pcfg.DatasetPrefix)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ds); err != nil {
			return errors.NewError(errors.CodeUnknown, "stats", err)
		}
		return nil
	}
	fmt.Fprintf(a.out, "%s/: %s\n", pcfg.DatasetPrefix, ds)
	return nil
}

// push uploads a local archive after checking that every entry reads back.
func (a *app) push(c *cli.Context) error {
	pcfg := a.cfg.Pipeline()
	path, err := filepath.Abs(c.String("file"))
	if err != nil {
		return errors.NewError(errors.CodeInvalidInput, "push", err).WithKey(c.String("file"))
	}

	info, err := a.fsys.Stat(path)
	if err != nil {
		return errors.NewError(errors.CodeInvalidInput, "push", err).WithKey(path)
	}
	if info.IsDir() {
		return errors.NewError(errors.CodeInvalidInput, "push", fmt.Errorf("is a directory")).WithKey(path)
	}

	data, err := a.fsys.ReadFile(path)
	if err != nil {
		return errors.NewError(errors.CodeInvalidInput, "push", err).WithKey(path)
	}
	arc, err := archive.Open(data)
	if err != nil {
		return err
	}
	for _, err := range arc.Entries() {
		if err != nil {
			return err
		}
	}

	if err := a.store.Put(c.Context, pcfg.Bucket, pcfg.ArchiveKey, data); err != nil {
		return errors.NewObjectError(errors.CodeWrite, "push", pcfg.Bucket, pcfg.ArchiveKey, err)
	}
	a.log.Info().
		Str("file", path).
		Str("key", pcfg.ArchiveKey).
		Int("entries", arc.Len()).
		Int64("size", info.Size()).
		Msg("uploaded archive")
	return nil
}
