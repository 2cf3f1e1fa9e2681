// Package minio implements objectstore.Store for S3-compatible endpoints
// using the MinIO client.
package minio
