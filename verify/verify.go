package verify

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

// DefaultSubpaths is the expected split layout under a dataset prefix.
var DefaultSubpaths = []string{
	"train/images",
	"train/labels",
	"valid/images",
	"valid/labels",
	"test/images",
	"test/labels",
}

// SubpathStatus is the verification state of one expected subpath.
type SubpathStatus string

const (
	StatusPresent SubpathStatus = "present"
	StatusMissing SubpathStatus = "missing"
	// StatusUnknown marks a subpath whose listing failed.
	StatusUnknown SubpathStatus = "unknown"
)

// SubpathResult is the state of one expected subpath.
type SubpathResult struct {
	Subpath string        `json:"subpath"`
	Status  SubpathStatus `json:"status"`
}

// Structure maps each expected subpath to its state, in the configured order.
type Structure []SubpathResult

// Missing returns the subpaths reported missing.
func (s Structure) Missing() []string {
	var missing []string
	for _, r := range s {
		if r.Status == StatusMissing {
			missing = append(missing, r.Subpath)
		}
	}
	return missing
}

// Complete reports whether every expected subpath is present.
func (s Structure) Complete() bool {
	for _, r := range s {
		if r.Status != StatusPresent {
			return false
		}
	}
	return true
}

// Status returns the state of subpath, or "" if it is not expected.
func (s Structure) Status(subpath string) SubpathStatus {
	for _, r := range s {
		if r.Subpath == subpath {
			return r.Status
		}
	}
	return ""
}

// Verifier checks expected subpaths and the dataset manifest.
type Verifier struct {
	store    objectstore.Store
	subpaths []string
	logger   *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithSubpaths replaces the expected subpaths. An empty list keeps the default.
func WithSubpaths(subpaths []string) Option {
	return func(v *Verifier) {
		if len(subpaths) > 0 {
			v.subpaths = append([]string(nil), subpaths...)
		}
	}
}

// WithLogger configures the verifier with a custom logger.
// If logger is nil, logging will be disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// New creates a Verifier over store.
func New(store objectstore.Store, opts ...Option) *Verifier {
	v := &Verifier{
		store:    store,
		subpaths: DefaultSubpaths,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return v
}

// Verify issues one bounded listing per expected subpath under
// "<prefix>/<subpath>/". Subpaths other than the expected ones are never
// consulted. A failed listing marks that subpath unknown and is returned
// joined with any other failures after every subpath has been checked.
func (v *Verifier) Verify(ctx context.Context, bucket, prefix string) (Structure, error) {
	structure := make(Structure, 0, len(v.subpaths))
	var errs []error

	for _, subpath := range v.subpaths {
		listPrefix := prefix + "/" + subpath + "/"
		objects, err := v.store.List(ctx, bucket, listPrefix, objectstore.WithMaxKeys(1))

		result := SubpathResult{Subpath: subpath}
		switch {
		case err != nil:
			result.Status = StatusUnknown
			errs = append(errs, errors.NewObjectError(errors.CodeStructureWarning, "verify", bucket, listPrefix, err))
			v.logger.ErrorContext(ctx, "failed to check subpath", "subpath", subpath, "error", err)
		case len(objects) > 0:
			result.Status = StatusPresent
			v.logger.InfoContext(ctx, "found subpath", "subpath", subpath)
		default:
			result.Status = StatusMissing
			v.logger.WarnContext(ctx, "missing subpath", "subpath", subpath)
		}
		structure = append(structure, result)
	}

	return structure, stderrors.Join(errs...)
}
