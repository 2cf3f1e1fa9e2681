package s3

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// ClientConfig holds configuration for the S3 backend.
type ClientConfig struct {
	// Region is the AWS region
	Region string

	// MaxRetries is the maximum number of attempts the SDK retryer makes
	MaxRetries int

	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration

	// Endpoint overrides the S3 endpoint URL (LocalStack, S3-compatible services)
	Endpoint string

	// ForcePathStyle uses path-style addressing instead of virtual-hosted style
	ForcePathStyle bool

	// AccessKeyID and SecretAccessKey, when both set, replace the default credential chain
	AccessKeyID     string
	SecretAccessKey string

	// CustomAWSConfig replaces default configuration loading
	CustomAWSConfig *aws.Config
}

// Option configures the S3 backend.
type Option func(*ClientConfig)

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) Option {
	return func(c *ClientConfig) {
		c.Region = region
	}
}

// WithMaxRetries sets the maximum number of retry attempts for failed operations.
// Default is 3. Zero keeps the SDK default.
func WithMaxRetries(maxRetries int) Option {
	return func(c *ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the timeout for individual S3 requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) Option {
	return func(c *ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(c *ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithCredentials uses static credentials instead of the default chain.
func WithCredentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ClientConfig) {
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) Option {
	return func(c *ClientConfig) {
		c.CustomAWSConfig = config
	}
}
