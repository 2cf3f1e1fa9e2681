package pipeline

import (
	"fmt"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/entry"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/stats"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/verify"
)

// Preflight describes the archive as found before processing.
type Preflight struct {
	Found        bool      `json:"found"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified,omitempty"`
	Entries      int       `json:"entries"`
}

// EntryResult is the processing result for one archive entry.
type EntryResult struct {
	entry.Outcome

	// TargetKey is where the entry was (or would have been) published
	TargetKey string `json:"targetKey"`

	Published  bool   `json:"published"`
	WriteError string `json:"writeError,omitempty"`

	// Skipped entries were never started because the run was cancelled
	Skipped bool `json:"skipped,omitempty"`
}

// CategoryCounts tallies outcomes for one category.
type CategoryCounts struct {
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// Counts is the compact form of a run's entry results.
type Counts struct {
	Entries       int                               `json:"entries"`
	Valid         int                               `json:"valid"`
	Invalid       int                               `json:"invalid"`
	Published     int                               `json:"published"`
	WriteFailures int                               `json:"writeFailures"`
	Skipped       int                               `json:"skipped"`
	ByCategory    map[entry.Category]CategoryCounts `json:"byCategory"`
}

// StageError is a non-fatal failure recorded during a stage.
type StageError struct {
	Stage   State            `json:"stage"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Report is the result of one run.
type Report struct {
	Bucket     string    `json:"bucket"`
	ArchiveKey string    `json:"archiveKey"`
	Prefix     string    `json:"prefix"`
	State      State     `json:"state"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Cancelled  bool      `json:"cancelled,omitempty"`

	Preflight Preflight     `json:"preflight"`
	Entries   []EntryResult `json:"entries"`
	Counts    Counts        `json:"counts"`

	Structure verify.Structure    `json:"structure,omitempty"`
	Manifest  *verify.Manifest    `json:"manifest,omitempty"`
	Stats     *stats.DatasetStats `json:"stats,omitempty"`

	// Error is set when the run failed during preflight
	Error  string       `json:"error,omitempty"`
	Errors []StageError `json:"errors,omitempty"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Invalid returns the results of entries that failed validation.
func (r *Report) Invalid() []EntryResult {
	var out []EntryResult
	for _, e := range r.Entries {
		if !e.Skipped && !e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

// Summary formats the counts, missing subpaths and stats on one line.
func (r *Report) Summary() string {
	if r.State == StateFailed {
		return fmt.Sprintf("%s: failed: %s", r.State, r.Error)
	}
	s := fmt.Sprintf("%s: %d entries, %d valid, %d invalid, %d write failures",
		r.State, r.Counts.Entries, r.Counts.Valid, r.Counts.Invalid, r.Counts.WriteFailures)
	if r.Counts.Skipped > 0 {
		s += fmt.Sprintf(", %d skipped", r.Counts.Skipped)
	}
	if missing := r.Structure.Missing(); len(missing) > 0 {
		s += fmt.Sprintf("; missing %v", missing)
	}
	if r.Stats != nil {
		s += "; " + r.Stats.String()
	}
	return s
}

func (r *Report) addError(stage State, err error) {
	r.Errors = append(r.Errors, StageError{
		Stage:   stage,
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})
}

func tally(results []EntryResult) Counts {
	c := Counts{
		Entries:    len(results),
		ByCategory: make(map[entry.Category]CategoryCounts),
	}
	for _, r := range results {
		if r.Skipped {
			c.Skipped++
			continue
		}
		cc := c.ByCategory[r.Category]
		if r.Valid() {
			c.Valid++
			cc.Valid++
		} else {
			c.Invalid++
			cc.Invalid++
		}
		c.ByCategory[r.Category] = cc
		if r.Published {
			c.Published++
		}
		if r.WriteError != "" {
			c.WriteFailures++
		}
	}
	return c
}
