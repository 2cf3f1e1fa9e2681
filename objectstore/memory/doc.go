// Package memory provides an in-memory object store for testing and dry runs.
// It implements objectstore.Store with thread-safe operations and no persistence.
package memory
