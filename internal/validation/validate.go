package validation

import (
	"path"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
)

// maxKeyLength is the S3 object key limit in bytes.
const maxKeyLength = 1024

// ValidateBucketName validates that a bucket name is DNS-compliant according to S3 rules.
// Returns ErrInvalidBucketName if the bucket name is invalid.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return bucketError(bucket, "bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return bucketError(bucket, "bucket name must be between 3 and 63 characters long")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return bucketError(bucket, "bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return bucketError(bucket, "bucket name cannot start or end with a hyphen or dot")
	}

	if isIPAddress(bucket) {
		return bucketError(bucket, "bucket name cannot be formatted as an IP address")
	}

	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") {
		return bucketError(bucket, "bucket name cannot contain two adjacent periods or hyphens")
	}

	return nil
}

// ValidateObjectKey validates that an object key is safe to write.
// Keys must be non-empty, relative, free of ".." segments and control
// characters, and at most 1024 bytes long.
func ValidateObjectKey(key string) error {
	if key == "" {
		return keyError(key, "object key cannot be empty")
	}

	if len(key) > maxKeyLength {
		return keyError(key, "object key cannot exceed 1024 characters")
	}

	if hasPathTraversal(key) {
		return keyError(key, "object key cannot contain path traversal sequences")
	}

	if hasControlCharacters(key) {
		return keyError(key, "object key cannot contain control characters")
	}

	return nil
}

// ValidatePrefix validates a dataset prefix. A prefix follows the object key
// rules and must not begin or end with a slash, since entry keys are built
// as "<prefix>/<entry name>".
func ValidatePrefix(prefix string) error {
	if err := ValidateObjectKey(prefix); err != nil {
		return err
	}
	if strings.HasPrefix(prefix, "/") || strings.HasSuffix(prefix, "/") {
		return keyError(prefix, "prefix cannot begin or end with a slash")
	}
	return nil
}

func bucketError(bucket, msg string) error {
	return errors.NewError(errors.CodeInvalidInput, "validateBucketName", errors.ErrInvalidBucketName).
		WithBucket(bucket).
		WithMessage(msg)
}

func keyError(key, msg string) error {
	return errors.NewError(errors.CodeInvalidInput, "validateObjectKey", errors.ErrInvalidObjectKey).
		WithKey(key).
		WithMessage(msg)
}

func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// isIPAddress checks if a string is formatted as a dotted IPv4 address.
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if part == "" || len(part) > 3 {
			return false
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal reports keys that are absolute or contain a ".." segment.
// Names such as "img..1.jpg" are allowed; only whole segments count.
func hasPathTraversal(key string) bool {
	normalized := strings.ReplaceAll(key, "\\", "/")

	if strings.HasPrefix(normalized, "/") {
		return true
	}

	// Windows drive letters
	if len(normalized) >= 3 && normalized[1] == ':' && normalized[2] == '/' {
		return true
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return true
		}
	}

	return strings.HasPrefix(path.Clean(normalized), "..")
}

func hasControlCharacters(key string) bool {
	for _, char := range key {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
