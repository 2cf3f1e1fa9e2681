package pipeline

import "sync/atomic"

// Metrics counts entry processing across runs of an Orchestrator.
// Counters are updated by concurrent workers and are safe to read at any time.
type Metrics struct {
	entriesProcessed atomic.Int64
	entriesValid     atomic.Int64
	entriesInvalid   atomic.Int64
	entriesSkipped   atomic.Int64
	published        atomic.Int64
	writeFailures    atomic.Int64
	bytesPublished   atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	EntriesProcessed int64 `json:"entriesProcessed"`
	EntriesValid     int64 `json:"entriesValid"`
	EntriesInvalid   int64 `json:"entriesInvalid"`
	EntriesSkipped   int64 `json:"entriesSkipped"`
	Published        int64 `json:"published"`
	WriteFailures    int64 `json:"writeFailures"`
	BytesPublished   int64 `json:"bytesPublished"`
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		EntriesProcessed: m.entriesProcessed.Load(),
		EntriesValid:     m.entriesValid.Load(),
		EntriesInvalid:   m.entriesInvalid.Load(),
		EntriesSkipped:   m.entriesSkipped.Load(),
		Published:        m.published.Load(),
		WriteFailures:    m.writeFailures.Load(),
		BytesPublished:   m.bytesPublished.Load(),
	}
}

func (m *Metrics) recordEntry(r EntryResult, size int) {
	if r.Skipped {
		m.entriesSkipped.Add(1)
		return
	}
	m.entriesProcessed.Add(1)
	if r.Outcome.Valid() {
		m.entriesValid.Add(1)
	} else {
		m.entriesInvalid.Add(1)
	}
	if r.Published {
		m.published.Add(1)
		m.bytesPublished.Add(int64(size))
	}
	if r.WriteError != "" {
		m.writeFailures.Add(1)
	}
}
