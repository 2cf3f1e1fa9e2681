// Package archive reads dataset archives held entirely in memory.
//
// An Archive is opened once per run from the downloaded blob and exposes its
// file entries by name. Nothing is written to the local filesystem, so the
// whole archive must fit in memory.
package archive
