package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/pipeline"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "DATASET"

// Keys understood by Load. Environment variables are EnvPrefix + "_" + the
// upper-cased key.
const (
	KeyBackend        = "backend"
	KeyBucket         = "bucket"
	KeyRegion         = "region"
	KeyArchiveKey     = "archive_key"
	KeyPrefix         = "prefix"
	KeyConcurrency    = "concurrency"
	KeyEndpoint       = "endpoint"
	KeyAccessKey      = "access_key"
	KeySecretKey      = "secret_key"
	KeyUseSSL         = "use_ssl"
	KeyForcePathStyle = "force_path_style"
	KeyMaxRetries     = "max_retries"
	KeyTimeout        = "timeout"
	KeyLogLevel       = "log_level"
	KeyLogFormat      = "log_format"
)

// Backend selects the object store implementation.
type Backend string

const (
	BackendS3    Backend = "s3"
	BackendMinio Backend = "minio"
)

// Log formats accepted for KeyLogFormat.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config is the resolved configuration for one invocation.
type Config struct {
	Backend Backend

	Bucket      string
	Region      string
	ArchiveKey  string
	Prefix      string
	Concurrency int

	// Endpoint overrides the S3 endpoint, or names the MinIO host
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
	MaxRetries     int
	Timeout        time.Duration

	LogLevel  string
	LogFormat string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyBackend, string(BackendS3))
	v.SetDefault(KeyBucket, pipeline.DefaultBucket)
	v.SetDefault(KeyRegion, pipeline.DefaultRegion)
	v.SetDefault(KeyArchiveKey, pipeline.DefaultArchiveKey)
	v.SetDefault(KeyPrefix, "")
	v.SetDefault(KeyConcurrency, pipeline.DefaultConcurrency)
	v.SetDefault(KeyEndpoint, "")
	v.SetDefault(KeyAccessKey, "")
	v.SetDefault(KeySecretKey, "")
	v.SetDefault(KeyUseSSL, true)
	v.SetDefault(KeyForcePathStyle, false)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeyTimeout, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, LogFormatConsole)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadEnvFile loads variables from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.NewError(errors.CodeInvalidConfig, "load env file", err).WithKey(path)
	}
	return nil
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Backend:        Backend(strings.ToLower(v.GetString(KeyBackend))),
		Bucket:         v.GetString(KeyBucket),
		Region:         v.GetString(KeyRegion),
		ArchiveKey:     v.GetString(KeyArchiveKey),
		Prefix:         v.GetString(KeyPrefix),
		Concurrency:    v.GetInt(KeyConcurrency),
		Endpoint:       v.GetString(KeyEndpoint),
		AccessKey:      v.GetString(KeyAccessKey),
		SecretKey:      v.GetString(KeySecretKey),
		UseSSL:         v.GetBool(KeyUseSSL),
		ForcePathStyle: v.GetBool(KeyForcePathStyle),
		MaxRetries:     v.GetInt(KeyMaxRetries),
		Timeout:        v.GetDuration(KeyTimeout),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      strings.ToLower(v.GetString(KeyLogFormat)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend settings and the pipeline configuration they imply.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendS3:
	case BackendMinio:
		if c.Endpoint == "" {
			return invalid(fmt.Errorf("%s backend requires %s_%s", c.Backend, EnvPrefix, strings.ToUpper(KeyEndpoint)))
		}
	default:
		return invalid(fmt.Errorf("unknown backend %q, want %q or %q", c.Backend, BackendS3, BackendMinio))
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return invalid(fmt.Errorf("access key and secret key must be set together"))
	}
	if c.MaxRetries < 0 {
		return invalid(fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Timeout < 0 {
		return invalid(fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.LogFormat != LogFormatConsole && c.LogFormat != LogFormatJSON {
		return invalid(fmt.Errorf("unknown log format %q, want %q or %q", c.LogFormat, LogFormatConsole, LogFormatJSON))
	}
	if c.Concurrency < 0 {
		return invalid(fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	return c.Pipeline().Validate()
}

// Pipeline returns the pipeline configuration with defaults applied.
func (c Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		Bucket:        c.Bucket,
		Region:        c.Region,
		ArchiveKey:    c.ArchiveKey,
		DatasetPrefix: c.Prefix,
		Concurrency:   c.Concurrency,
	}.WithDefaults()
}

func invalid(err error) error {
	return errors.NewError(errors.CodeInvalidConfig, "config", err)
}
