// Package publish writes archive entries to their target keys under the
// dataset prefix.
package publish
