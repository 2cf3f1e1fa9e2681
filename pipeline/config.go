package pipeline

import (
	"fmt"
	"path"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/verify"
)

// Defaults for the dart detection dataset this pipeline was first built for.
const (
	DefaultBucket      = "dartopia-coach-connect"
	DefaultRegion      = "eu-west-2"
	DefaultArchiveKey  = "Darts.v2i.yolov11.zip"
	DefaultConcurrency = 5
)

// Config describes one pipeline run. It is passed explicitly to New; there is
// no package-level state.
type Config struct {
	// Bucket holds both the archive and the republished entries
	Bucket string `json:"bucket"`

	// Region is informational for the orchestrator; backends are configured separately
	Region string `json:"region,omitempty"`

	// ArchiveKey is the key of the dataset archive
	ArchiveKey string `json:"archiveKey"`

	// DatasetPrefix is the key namespace entries are republished under.
	// Defaults to the archive's base name without its extension.
	DatasetPrefix string `json:"datasetPrefix"`

	// ExpectedSubpaths are checked under DatasetPrefix after republishing
	ExpectedSubpaths []string `json:"expectedSubpaths"`

	// Concurrency bounds the number of entries processed at once
	Concurrency int `json:"concurrency"`
}

// DefaultConfig returns the configuration for the dart detection dataset.
func DefaultConfig() Config {
	return Config{
		Bucket:     DefaultBucket,
		Region:     DefaultRegion,
		ArchiveKey: DefaultArchiveKey,
	}.WithDefaults()
}

// DefaultPrefix derives a dataset prefix from an archive key:
// "datasets/Darts.v2i.yolov11.zip" becomes "Darts.v2i.yolov11".
func DefaultPrefix(archiveKey string) string {
	base := path.Base(archiveKey)
	return strings.TrimSuffix(base, path.Ext(base))
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.ArchiveKey == "" {
		c.ArchiveKey = DefaultArchiveKey
	}
	if c.DatasetPrefix == "" {
		c.DatasetPrefix = DefaultPrefix(c.ArchiveKey)
	}
	if len(c.ExpectedSubpaths) == 0 {
		c.ExpectedSubpaths = append([]string(nil), verify.DefaultSubpaths...)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	if err := validation.ValidateBucketName(c.Bucket); err != nil {
		return invalidConfig("bucket", err)
	}
	if err := validation.ValidateObjectKey(c.ArchiveKey); err != nil {
		return invalidConfig("archive key", err)
	}
	if err := validation.ValidatePrefix(c.DatasetPrefix); err != nil {
		return invalidConfig("dataset prefix", err)
	}
	for _, subpath := range c.ExpectedSubpaths {
		if err := validation.ValidatePrefix(subpath); err != nil {
			return invalidConfig("expected subpath", err)
		}
	}
	if c.Concurrency < 1 {
		return invalidConfig("concurrency", fmt.Errorf("must be at least 1, got %d", c.Concurrency))
	}
	return nil
}

func invalidConfig(field string, err error) error {
	return errors.NewError(errors.CodeInvalidConfig, "config", err).WithMessage(field)
}
