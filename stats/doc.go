// Package stats summarises the objects under a dataset prefix.
package stats
