// Package pool provides reusable scratch buffers for decompressing archive
// entries. Label files are typically a few hundred bytes and images tens to
// hundreds of kilobytes, so buffers are kept in three size classes.
package pool
