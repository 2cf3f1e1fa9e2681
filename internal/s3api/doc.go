// Package s3api defines the subset of the S3 API used by the object-store
// backend, so the backend can be exercised against mocks.
package s3api
