// Package objectstore defines the object-store contract the dataset pipeline
// is written against. Backends live in the s3, minio and memory subpackages.
//
// All operations are network calls for remote backends and may fail with
// transient or permanent errors. Implementations map not-found conditions to
// errors.ErrObjectNotFound and do not retry beyond their transport policy.
package objectstore
