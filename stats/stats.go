package stats

import (
	"context"
	"fmt"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/entry"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

const bytesPerMB = 1024 * 1024

// DatasetStats is an aggregate over one listing of a prefix.
// ImageCount+LabelCount never exceeds TotalObjects; objects of other kinds are
// counted only in the totals.
type DatasetStats struct {
	TotalObjects int   `json:"totalObjects"`
	TotalBytes   int64 `json:"totalBytes"`
	ImageCount   int   `json:"imageCount"`
	LabelCount   int   `json:"labelCount"`
}

// TotalMB returns TotalBytes in mebibytes.
func (s DatasetStats) TotalMB() float64 {
	return float64(s.TotalBytes) / bytesPerMB
}

// String formats the stats for logs.
func (s DatasetStats) String() string {
	return fmt.Sprintf("%d objects (%.2f MB): %d images, %d labels",
		s.TotalObjects, s.TotalMB(), s.ImageCount, s.LabelCount)
}

// Add folds one object into the stats.
func (s *DatasetStats) Add(obj objectstore.Object) {
	s.TotalObjects++
	s.TotalBytes += obj.Size
	switch entry.Classify(obj.Key) {
	case entry.CategoryImage:
		s.ImageCount++
	case entry.CategoryLabel:
		s.LabelCount++
	case entry.CategoryOther:
	}
}

// Aggregator computes DatasetStats from a fresh listing.
type Aggregator struct {
	store objectstore.Store
}

// New creates an Aggregator over store.
func New(store objectstore.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate lists every object under "<prefix>/" and sums them. Nothing is
// cached between calls.
func (a *Aggregator) Aggregate(ctx context.Context, bucket, prefix string) (DatasetStats, error) {
	objects, err := a.store.List(ctx, bucket, prefix+"/")
	if err != nil {
		return DatasetStats{}, errors.NewObjectError(errors.CodeOf(err), "aggregate", bucket, prefix, err)
	}

	var s DatasetStats
	for _, obj := range objects {
		s.Add(obj)
	}
	return s, nil
}
